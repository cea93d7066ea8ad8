// Command lapreport renders a stored session's lap times as a chart, as
// either a static PNG (gonum/plot) or an interactive HTML page
// (go-echarts), reading the session back out of the filesystem store
// the headless engine wrote it into.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rapid-timing/rapid/internal/config"
	"github.com/rapid-timing/rapid/internal/report"
	"github.com/rapid-timing/rapid/internal/store"
)

var (
	storeRoot = flag.String("store-root", "", "filesystem root the session/track store was created with (default: engine default)")
	sessionID = flag.String("session", "", "id of the session to report on (see -list)")
	outPath   = flag.String("out", "lap-report.png", "output file path; .html renders an interactive chart, anything else a PNG")
	list      = flag.Bool("list", false, "list the ids of every stored session and exit")
)

func main() {
	flag.Parse()

	root := *storeRoot
	if root == "" {
		root = config.DefaultConfig().GetStoreRoot()
	}

	s, err := store.New(root)
	if err != nil {
		log.Fatalf("lapreport: open store at %s: %v", root, err)
	}

	if *list {
		infos, err := s.LoadSessionInfos()
		if err != nil {
			log.Fatalf("lapreport: list sessions: %v", err)
		}
		for _, entry := range infos {
			fmt.Printf("%s\t%s\t%s %s\t%d laps\n", entry.ID, entry.Info.TrackName, entry.Info.Date, entry.Info.Time, entry.Info.LapCount)
		}
		return
	}

	if *sessionID == "" {
		log.Fatalf("lapreport: -session is required (use -list to see available ids)")
	}

	sess, err := s.LoadSession(*sessionID)
	if err != nil {
		log.Fatalf("lapreport: load session %s: %v", *sessionID, err)
	}

	if isHTML(*outPath) {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("lapreport: create %s: %v", *outPath, err)
		}
		defer f.Close()
		if err := report.RenderHTML(sess, f); err != nil {
			log.Fatalf("lapreport: render html: %v", err)
		}
	} else {
		if err := report.RenderPNG(sess, *outPath); err != nil {
			log.Fatalf("lapreport: render png: %v", err)
		}
	}

	log.Printf("lapreport: wrote %s", *outPath)
}

func isHTML(path string) bool {
	return len(path) >= 5 && path[len(path)-5:] == ".html"
}
