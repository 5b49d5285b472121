// Package hostfunc provides the host functions page scripts call from inside
// the sandbox.
//
// A guest has no access to the page or the network on its own. Each
// capability is added to a [Registry] explicitly:
//
//	registry := hostfunc.NewRegistry()
//	page := hostfunc.NewPage()
//	page.Register(registry)
//
// # Page
//
// [Page] owns the tables and canvases a script creates. table_new and
// canvas_new return handles ("table-1", "canvas-2") that later calls pass
// back. Canvas calls take a flat JSON batch and are recorded as a display
// list which [Page.Snapshot] returns together with the table contents.
//
// # Storage
//
// [Storage] mirrors browser localStorage: every value is stored as text and
// missing keys read as null. Key size, value size and entry count are
// bounded by [StorageConfig].
//
// # HTTP
//
// [HTTP] performs fetches limited to [HTTPConfig.AllowedHosts]. With no
// allowed hosts every request fails.
package hostfunc
