package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sanae-abe/cldev/internal/record"
)

var (
	newTags     []string
	newDuration int64
	newResolved bool
)

func init() {
	lrNewCmd.Flags().StringSliceVarP(&newTags, "tag", "T", nil, "Topic tag (repeatable)")
	lrNewCmd.Flags().Int64VarP(&newDuration, "duration", "d", 0, "Session duration in minutes")
	lrNewCmd.Flags().BoolVar(&newResolved, "resolved", false, "Mark the session resolved")
}

var lrNewCmd = &cobra.Command{
	Use:   "new <title> [notes...]",
	Short: "Record a new learning session",
	Long: `Record a new learning session as a markdown note.

The note is written to the records directory and indexed immediately. Edit
the file afterwards to flesh it out; 'cldev lr watch' or 'cldev lr rebuild'
picks up the changes.

Example:
  cldev lr new "Fixed flaky websocket test" --tag websocket --tag testing -d 45`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		body := "# " + args[0]
		if len(args) > 1 {
			body += "\n\n" + strings.Join(args[1:], " ")
		}

		id := fmt.Sprintf("lr-%s", uuid.New().String()[:8])
		note := record.NewNote(id, body)
		note.Tags = newTags
		if newDuration > 0 {
			note.DurationMin = &newDuration
		}
		if newResolved {
			note.Status = record.StatusResolved
		}

		content, err := note.Markdown()
		if err != nil {
			return fmt.Errorf("serialize note: %w", err)
		}

		if err := os.MkdirAll(store.RecordsDir(), 0o755); err != nil {
			return fmt.Errorf("create records directory: %w", err)
		}

		path := filepath.Join(store.RecordsDir(), id+".md")
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return fmt.Errorf("write note: %w", err)
		}

		rec := note.Record()
		if _, err := store.UpsertSession(rec, path); err != nil {
			return fmt.Errorf("index note: %w", err)
		}

		fmt.Printf("%s Recorded %s at %s\n", color.GreenString("✓"), id, path)
		return nil
	},
}

var lrShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one session in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		meta, err := store.GetSession(args[0])
		if err != nil {
			return err
		}

		status := color.YellowString("open")
		if meta.Resolved {
			status = color.GreenString("resolved")
		}

		fmt.Printf("%s %s\n", color.CyanString(meta.ID), meta.Title)
		fmt.Printf("Type:     %s\n", meta.SessionType)
		fmt.Printf("Priority: %s\n", meta.Priority)
		fmt.Printf("Status:   %s\n", status)
		fmt.Printf("When:     %s\n", meta.Timestamp)
		if meta.DurationMinutes != nil {
			fmt.Printf("Duration: %d min\n", *meta.DurationMinutes)
		}
		fmt.Printf("Hotspot:  %.2f\n", meta.HotspotScore)
		fmt.Printf("File:     %s\n", meta.MarkdownPath)

		content, err := os.ReadFile(meta.MarkdownPath)
		if err != nil {
			fmt.Printf("\n%s markdown file unreadable: %v\n", color.YellowString("⚠"), err)
			return nil
		}
		fmt.Printf("\n%s\n", string(content))
		return nil
	},
}

var lrRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a session and its markdown file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.RemoveRecord(args[0]); err != nil {
			return fmt.Errorf("remove failed: %w", err)
		}

		fmt.Printf("%s Removed %s\n", color.GreenString("✓"), args[0])
		return nil
	},
}
