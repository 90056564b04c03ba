// Command snaketop shows the live sessions of a running battlesnake server.
package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "Base URL of the battlesnake server")
	every := flag.Duration("every", time.Second, "Poll interval")
	flag.Parse()

	client := &http.Client{Timeout: 2 * time.Second}
	p := tea.NewProgram(newModel(client, *addr, *every), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("snaketop: %v", err)
	}
}
