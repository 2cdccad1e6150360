package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"goensight/internal/session"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var output string
	var width, height, aaPasses int
	var raw, highlight bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the current viewport to an image file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(runCtx context.Context, sess *session.Session) error {
				data, err := sess.Render(runCtx, session.RenderOptions{
					Width:        width,
					Height:       height,
					AAPasses:     aaPasses,
					Raw:          raw,
					Highlighting: highlight,
				})
				if err != nil {
					return fmt.Errorf("render viewport: %w", err)
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("write image: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", output, len(data))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "render.png", "Destination image file")
	cmd.Flags().IntVar(&width, "width", 1920, "Image width in pixels")
	cmd.Flags().IntVar(&height, "height", 1080, "Image height in pixels")
	cmd.Flags().IntVar(&aaPasses, "aa", 4, "Antialiasing passes")
	cmd.Flags().BoolVar(&raw, "raw", false, "Return the raw pixel buffer instead of PNG")
	cmd.Flags().BoolVar(&highlight, "highlight", false, "Include selection highlighting")
	return cmd
}

func newGeometryCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "geometry",
		Short: "Export the current scene as glTF binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(runCtx context.Context, sess *session.Session) error {
				data, err := sess.Geometry(runCtx)
				if err != nil {
					return fmt.Errorf("export geometry: %w", err)
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("write geometry: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", output, len(data))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "geometry.glb", "Destination geometry file")
	return cmd
}
