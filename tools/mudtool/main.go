package main

import (
	"fmt"
	"os"
	"time"

	"mud-server/internal/infrastructure/storage"
	"mud-server/internal/version"

	"github.com/goccy/go-json"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		return
	}

	switch os.Args[1] {
	case "date":
		fmt.Println(time.Now().UTC().Format("2006-01-02"))
	case "buildid":
		date := time.Now().UTC().Format("2006-01-02")
		if len(os.Args) >= 3 {
			date = os.Args[2]
		}
		id, err := version.BuildIDFor(date)
		if err != nil {
			fmt.Printf("Invalid date: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(id)
	case "snapshot":
		if len(os.Args) < 3 {
			fmt.Println("Usage: mudtool snapshot <file.muds>")
			os.Exit(1)
		}
		snap, err := storage.ReadFile(os.Args[2])
		if err != nil {
			fmt.Printf("Invalid snapshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("token:  %s\nentity: %s\nsaved:  %s\n",
			snap.Token, snap.EntityID, time.UnixMilli(snap.SavedAt).UTC().Format(time.RFC3339))
		dbase, _ := json.MarshalIndent(snap.Dbase, "", "  ")
		fmt.Println(string(dbase))
	default:
		printHelp()
	}
}

func printHelp() {
	fmt.Println(`MUD Tool - служебные команды сервера
Commands:
  date                 - сегодняшняя дата для -ldflags BuildDate
  buildid [date]       - номер сборки для даты (по умолчанию сегодня)
  snapshot <file>      - показать снимок игрока (.muds)`)
}
