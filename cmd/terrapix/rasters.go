package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/terrapix/terrapix-client-go/client"
	"github.com/terrapix/terrapix-client-go/service/log"
)

const maxParallelUploads = 4

func newRasterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "raster",
		Short: "Manage rasters",
	}

	upload := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload one or more raster files and wait until they are ready",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clt, err := newClient()
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("name")
			folder, _ := cmd.Flags().GetString("folder")
			if name != "" && len(args) > 1 {
				return fmt.Errorf("--name cannot be used with multiple files")
			}

			// one shared client, independent upload flows
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(maxParallelUploads)
			for _, path := range args {
				path := path
				g.Go(func() error {
					id, err := clt.UploadRaster(ctx, path, &client.UploadRasterOptions{Name: name, FolderID: folder})
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					log.Logger(ctx).Info("raster uploaded", zap.String("file", path), zap.String("raster", id))
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, path)
					return nil
				})
			}
			return g.Wait()
		},
	}
	upload.Flags().String("name", "", "raster display name (single file only)")
	upload.Flags().String("folder", "", "destination folder id")

	list := &cobra.Command{
		Use:   "list",
		Short: "List rasters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clt, err := newClient()
			if err != nil {
				return err
			}
			rasters, err := clt.Rasters(cmd.Context())
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"ID", "Name", "Status", "Folder"})
			for _, r := range rasters {
				t.AppendRow(table.Row{r.ID, r.Name, r.Status, r.FolderID})
			}
			t.Render()
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <raster-id>",
		Short: "Delete a raster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clt, err := newClient()
			if err != nil {
				return err
			}
			return clt.DeleteRaster(cmd.Context(), args[0])
		},
	}

	area := &cobra.Command{
		Use:   "detection-area <raster-id> <geojson-file>",
		Short: "Restrict detection on a raster to the areas of a GeoJSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[1]); err != nil {
				return err
			}
			clt, err := newClient()
			if err != nil {
				return err
			}
			return clt.SetDetectionArea(cmd.Context(), args[0], args[1])
		},
	}

	cmd.AddCommand(upload, list, rm, area)
	return cmd
}
