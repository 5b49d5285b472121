// Package executor runs page scripts inside a wazero WASI sandbox.
//
// An [Executor] compiles each interpreter once and instantiates it per run.
// [Executor.Run] executes a script on a fresh instance while a [Session]
// keeps one instance alive between runs:
//
//	exec, err := executor.New(hostfunc.NewRegistry(), executor.WithDiskCache())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close()
//
//	page := hostfunc.NewPage()
//	result := exec.Run(ctx, lang, code, executor.WithPage(page))
//	fmt.Println(result.Output)
//
// Every run gets the page functions (tables, canvases, get_time), a
// localStorage-like store and HTTP access limited by [WithAllowedHosts].
// Pass [WithPage] or [WithStorage] to keep their state after the run.
//
// Guests call the host by writing \x00PAGEKIT:{"fn":...,"args":...}\x00 to
// stderr and reading one JSON line from stdin. A session guest signals
// \x00PAGEKIT_READY\x00 once and then \x00PAGEKIT_DONE\x00 or
// \x00PAGEKIT_ERROR:message\x00 after each command.
package executor
