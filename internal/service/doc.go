// Package service contains the application use cases. It sits between the
// HTTP layer and the store interfaces in internal/store.
//
// The only use case is task management. A TaskService is built once at
// startup; per request, the Authentication Gate asks it for a TaskAccess
// bound to the verified identity. Handlers only ever see that handle, so no
// code path can name a task without also naming its owner.
package service
