// Package process provides child process management for language servers.
//
// The LSP worker owns exactly one language-server subprocess at a time, but
// every spawn goes through the Supervisor so stdio wiring, exit tracking, and
// shutdown behave the same way everywhere.
//
// # Supervisor
//
// The Supervisor spawns servers with piped stdio and tracks them until exit:
//
//	supervisor := process.NewSupervisor()
//	defer supervisor.Shutdown(5 * time.Second)
//
//	server, err := supervisor.Spawn("gopls", "/path/to/workspace")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// server.Stdin / server.Stdout / server.Stderr carry the LSP streams.
//	<-server.Done()
//
// # Graceful Shutdown
//
// Stop and Shutdown send SIGTERM, wait up to the given timeout, then SIGKILL
// anything still running. A server that ignores SIGTERM therefore cannot stall
// editor teardown indefinitely.
//
// Both Supervisor and Server are safe for concurrent use.
package process
