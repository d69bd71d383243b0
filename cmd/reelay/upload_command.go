package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelay/internal/captions"
	"reelay/internal/records"
	"reelay/internal/services/cloudinary"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var captionFlag string
	var captionFile string
	var hoursFlag int
	var publicID string
	var coverURL string
	var locationID string

	cmd := &cobra.Command{
		Use:   "upload <video>",
		Short: "Upload a video and schedule it as a reel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := ctx.recordStore()
			if err != nil {
				return err
			}
			loc := store.Location()

			caption, err := resolveCaption(captionFlag, captionFile)
			if err != nil {
				return err
			}

			client, err := cloudinary.New(cfg)
			if err != nil {
				return err
			}
			result, err := client.Upload(cmd.Context(), args[0], cloudinary.UploadOptions{PublicID: publicID})
			if err != nil {
				return err
			}

			hours := hoursFlag
			if hours <= 0 {
				hours = cfg.Scheduling.DefaultLeadHours
			}
			scheduled := time.Now().In(loc).Add(time.Duration(hours) * time.Hour)

			record := records.Record{
				VideoURL:      result.SecureURL,
				Caption:       caption,
				ScheduledTime: scheduled.Format(time.RFC3339),
			}
			if strings.TrimSpace(locationID) != "" {
				id := strings.TrimSpace(locationID)
				record.LocationID = &id
			}
			if strings.TrimSpace(coverURL) != "" {
				url := strings.TrimSpace(coverURL)
				record.CoverURL = &url
			}

			stem := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			name := fmt.Sprintf("reel_%s_%s.json", scheduled.Format("20060102_150405"), stem)
			path := filepath.Join(store.Dir(), name)
			if err := store.Write(cmd.Context(), path, record); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Uploaded %s (%d bytes)\n", result.PublicID, result.Bytes)
			fmt.Fprintf(out, "Video URL: %s\n", result.SecureURL)
			fmt.Fprintf(out, "Scheduled for %s\n", scheduled.Format(time.RFC1123))
			fmt.Fprintf(out, "Record: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&captionFlag, "caption", "", "Reel caption text")
	cmd.Flags().StringVar(&captionFile, "caption-file", "", "Read the caption from a file")
	cmd.Flags().IntVar(&hoursFlag, "hours", 0, "Hours from now to schedule the post (default from config)")
	cmd.Flags().StringVar(&publicID, "public-id", "", "Cloudinary public ID (default: video file stem)")
	cmd.Flags().StringVar(&coverURL, "cover-url", "", "Cover image URL for the reel")
	cmd.Flags().StringVar(&locationID, "location-id", "", "Instagram location ID to tag")
	return cmd
}

func resolveCaption(captionFlag, captionFile string) (string, error) {
	caption := captionFlag
	if captionFile != "" {
		if caption != "" {
			return "", fmt.Errorf("use either --caption or --caption-file, not both")
		}
		data, err := os.ReadFile(captionFile)
		if err != nil {
			return "", fmt.Errorf("read caption file: %w", err)
		}
		caption = string(data)
	}
	caption = captions.Normalize(caption)
	if caption == "" {
		return "", fmt.Errorf("a caption is required (--caption or --caption-file)")
	}
	if err := captions.Validate(caption); err != nil {
		return "", err
	}
	return caption, nil
}
