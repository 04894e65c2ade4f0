package main

import (
	"fmt"
	"os"
	"time"
)

func main() {
	app := NewApp("demo-conversation")
	if err := app.Startup(); err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer app.Shutdown()

	// Scripted walkthrough: history shows up, a send round-trips through the
	// simulated peer, then an edit and a reaction land.
	time.Sleep(500 * time.Millisecond)
	app.Render()

	app.session.NotifyComposing()
	app.session.SendText("Hello from the demo")
	time.Sleep(3 * time.Second)
	app.Render()

	msgs := app.session.Messages()
	if len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		app.session.ToggleReaction(last.ID, "👍")
	}
	time.Sleep(time.Second)
	app.Render()
}
