// Package pagekit runs page scripts on WebAssembly interpreters and gives
// them tables, canvases and local storage.
//
// # Overview
//
// A page names its interpreter backend in the URL, either as the hash
// fragment (page.html#py) or as a query parameter (page.html?runtime=py).
// The [bootstrap] package resolves the token against a manifest and builds
// the toggle URL for the next backend. Scripts run under wazero through the
// [executor] package and reach the host through a small call protocol.
//
// # Basic Usage
//
//	exec, _ := executor.New(nil)
//	defer exec.Close()
//
//	page := hostfunc.NewPage()
//	lang := python.New(python.Options{Module: "micropython.wasm", Argv0: "micropython"})
//	result := exec.Run(ctx, lang, `
//	t = Table()
//	t.title(0, "Country")
//	t.set(0, 0, "Angola")
//	`, executor.WithPage(page))
//
//	fmt.Println(page.Snapshot().Tables["table-1"].Rows) // [[Angola]]
//
//	// Session with persistent state and page
//	session, _ := exec.NewSession(lang)
//	session.Run(ctx, `c = Canvas()`)
//	session.Run(ctx, `c.fill_rects([0, 0, 10, 10, "red"])`)
//
// # Capabilities
//
//	// HTTP access for ltk_get, ltk_post and ltk_delete
//	exec.Run(ctx, lang, code, executor.WithAllowedHosts([]string{"api.example.com"}))
//
//	// Local storage shared between runs
//	store := hostfunc.NewStorageWith(hostfunc.WithMaxEntries(100))
//	exec.Run(ctx, lang, code, executor.WithStorage(store))
//
// See the [grid], [canvas], [serial], [hostfunc], [executor],
// [language/python] and [language/javascript] packages for details.
package pagekit
