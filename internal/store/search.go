package store

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds a LIKE pattern matching any string that contains
// search literally. Wildcards in search are escaped with a backslash, so
// queries must declare ESCAPE '\'.
func ContainsPattern(search string) string {
	return "%" + likeEscaper.Replace(search) + "%"
}
