// Package main provides the box administration CLI. It operates
// directly on the database, so playlist edits show up on the box via
// its mutation hook only when run against a copy the box reloads; the
// intended use is maintenance while the box is idle.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/bertibox/bertibox/internal/domain/playlist"
	"github.com/bertibox/bertibox/internal/infra/store"
)

var (
	app    = kingpin.New("boxctl", "BertiBox admin tool")
	dbPath = app.Flag("db", "Path to database (or set BERTIBOX_DB_PATH env)").Default("bertibox.db").Envar("BERTIBOX_DB_PATH").String()

	// tag commands
	listTagsCmd = app.Command("list-tags", "List all tags").Alias("list")

	addTagCmd  = app.Command("add-tag", "Register a tag")
	addTagUID  = addTagCmd.Arg("uid", "Tag UID").Required().String()
	addTagName = addTagCmd.Arg("name", "Tag name").Required().String()

	renameTagCmd  = app.Command("rename-tag", "Rename a tag")
	renameTagUID  = renameTagCmd.Arg("uid", "Tag UID").Required().String()
	renameTagName = renameTagCmd.Arg("name", "New name").Required().String()

	deleteTagCmd = app.Command("delete-tag", "Delete a tag and its playlists")
	deleteTagUID = deleteTagCmd.Arg("uid", "Tag UID").Required().String()

	// playlist commands
	showCmd = app.Command("show", "Show the playlist of a tag")
	showUID = showCmd.Arg("uid", "Tag UID").Required().String()

	addTrackCmd    = app.Command("add-track", "Append tracks to the playlist of a tag")
	addTrackUID    = addTrackCmd.Arg("uid", "Tag UID").Required().String()
	addTrackFiles  = addTrackCmd.Arg("file", "Track file path relative to the media directory").Required().Strings()

	moveTrackCmd  = app.Command("move-track", "Move a playlist item to a new position")
	moveTrackItem = moveTrackCmd.Arg("item-id", "Playlist item ID").Required().Int64()
	moveTrackPos  = moveTrackCmd.Arg("position", "Target position (0-based)").Required().Int()

	deleteTrackCmd  = app.Command("delete-track", "Delete a playlist item")
	deleteTrackItem = deleteTrackCmd.Arg("item-id", "Playlist item ID").Required().Int64()

	// settings commands
	getSettingCmd = app.Command("get-setting", "Print a setting value")
	getSettingKey = getSettingCmd.Arg("key", "Setting key").Required().String()

	setSettingCmd   = app.Command("set-setting", "Store a setting value")
	setSettingKey   = setSettingCmd.Arg("key", "Setting key").Required().String()
	setSettingValue = setSettingCmd.Arg("value", "Setting value").Required().String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	st, err := store.Open(*dbPath)
	if err != nil {
		fatal("Failed to open database: %v", err)
	}
	defer st.Close()

	switch command {
	case listTagsCmd.FullCommand():
		listTags(st)
	case addTagCmd.FullCommand():
		addTag(st, *addTagUID, *addTagName)
	case renameTagCmd.FullCommand():
		renameTag(st, *renameTagUID, *renameTagName)
	case deleteTagCmd.FullCommand():
		deleteTag(st, *deleteTagUID)
	case showCmd.FullCommand():
		showPlaylist(st, *showUID)
	case addTrackCmd.FullCommand():
		addTracks(st, *addTrackUID, *addTrackFiles)
	case moveTrackCmd.FullCommand():
		moveTrack(st, *moveTrackItem, *moveTrackPos)
	case deleteTrackCmd.FullCommand():
		deleteTrack(st, *deleteTrackItem)
	case getSettingCmd.FullCommand():
		getSetting(st, *getSettingKey)
	case setSettingCmd.FullCommand():
		setSetting(st, *setSettingKey, *setSettingValue)
	}
}

func fatal(format string, args ...any) {
	fmt.Printf("Error: "+format+"\n", args...)
	os.Exit(1)
}

func listTags(st *store.Store) {
	tags, err := st.ListTags()
	if err != nil {
		fatal("%v", err)
	}

	if len(tags) == 0 {
		fmt.Println("No tags registered")
		return
	}

	for _, t := range tags {
		tracks := 0
		for _, pl := range t.Playlists {
			tracks += len(pl.Items)
		}
		fmt.Printf("%-20s %-30s %d tracks\n", t.UID, t.Name, tracks)
	}
}

func addTag(st *store.Store, uid, name string) {
	t, err := st.CreateTag(uid, name)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Tag %s created (id %d)\n", t.UID, t.ID)
}

func renameTag(st *store.Store, uid, name string) {
	ok, err := st.UpdateTagName(uid, name)
	if err != nil {
		fatal("%v", err)
	}
	if !ok {
		fatal("tag %s not found", uid)
	}
	fmt.Printf("Tag %s renamed to %q\n", uid, name)
}

func deleteTag(st *store.Store, uid string) {
	ok, err := st.DeleteTag(uid)
	if err != nil {
		fatal("%v", err)
	}
	if !ok {
		fatal("tag %s not found", uid)
	}
	fmt.Printf("Tag %s deleted\n", uid)
}

func showPlaylist(st *store.Store, uid string) {
	pl, err := st.PlaylistForTag(uid)
	if err != nil {
		fatal("%v", err)
	}

	fmt.Printf("Playlist %d: %s\n", pl.ID, pl.Name)
	if len(pl.Items) == 0 {
		fmt.Println("  (empty)")
		return
	}
	printItems(pl.Items)
}

func printItems(items []playlist.Item) {
	for _, item := range items {
		fmt.Printf("  %3d  [%d]  %s\n", item.Position, item.ID, item.TrackFile)
	}
}

func addTracks(st *store.Store, uid string, files []string) {
	pl, err := st.PlaylistForTag(uid)
	if err != nil {
		fatal("%v", err)
	}

	items, err := st.AddItems(pl.ID, files)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Added %d tracks to playlist %d\n", len(items), pl.ID)
	printItems(items)
}

func moveTrack(st *store.Store, itemID int64, position int) {
	ok, err := st.MoveItem(itemID, position)
	if err != nil {
		fatal("%v", err)
	}
	if !ok {
		fatal("item %d not found", itemID)
	}
	fmt.Printf("Item %d moved to position %d\n", itemID, position)
}

func deleteTrack(st *store.Store, itemID int64) {
	ok, err := st.DeleteItem(itemID)
	if err != nil {
		fatal("%v", err)
	}
	if !ok {
		fatal("item %d not found", itemID)
	}
	fmt.Printf("Item %d deleted\n", itemID)
}

func getSetting(st *store.Store, key string) {
	value, err := st.GetSetting(key, "")
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(value)
}

func setSetting(st *store.Store, key, value string) {
	if err := st.SetSetting(key, value, false); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("%s = %s\n", key, value)
}
