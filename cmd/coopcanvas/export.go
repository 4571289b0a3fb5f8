package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/export"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/internal/config"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/raster"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/snapshot"
)

var errNoCanvas = errors.New("canvas not in snapshot")

func loadDocument(ctx context.Context, cfgPath string) (*snapshot.Document, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.Load(ctx)
}

// stackOf rebuilds the layers of canvas c.
func stackOf(d *snapshot.Document, c *snapshot.Canvas) *raster.Stack {
	s := raster.NewStack(d.Width, d.Height, 255)
	s.Grow(c.LayerCount + 1)

	for _, ld := range c.Layers {
		s.Grow(ld.Index + 1)
		if ld.Index >= s.Count() {
			continue
		}

		if err := snapshot.DecodeLayer(s.Layers[ld.Index], ld.Data, d.Width, d.Height); err != nil {
			log.Printf("[Export] Canvas #%d layer %d: %v", c.ID, ld.Index, err)
		}
	}

	return s
}

func exportCmd() *cobra.Command {
	var (
		cfgPath string
		canvas  int
	)

	cmd := &cobra.Command{
		Use:   "export <file.png|file.bmp|file.pdf>",
		Short: "Flatten a stored canvas into an image or PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(cmd.Context(), cfgPath)
			if err != nil {
				return err
			}

			c := doc.Canvas(canvas)
			if c == nil {
				return fmt.Errorf("%w: #%d", errNoCanvas, canvas)
			}

			if err := export.WriteFile(args[0], stackOf(doc, c).Composite()); err != nil {
				return err
			}

			fmt.Printf("Canvas #%d written to %s\n", canvas, args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", config.DefaultPath, "Configuration file")
	cmd.Flags().IntVar(&canvas, "canvas", 0, "Canvas id")

	return cmd
}

func inspectCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize the stored snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(cmd.Context(), cfgPath)
			if err != nil {
				return err
			}

			fmt.Printf("Snapshot v%d, %dx%d, %d canvases\n", doc.Version, doc.Width, doc.Height, len(doc.Canvases))
			for i := range doc.Canvases {
				c := &doc.Canvases[i]
				s := stackOf(doc, c)

				painted := 0
				for _, l := range s.Layers[1:] {
					if l.HasContent() {
						painted++
					}
				}

				fmt.Printf("  #%-3d %2d layers, %2d painted, %d encoded bytes\n", c.ID, s.Count()-1, painted, encodedSize(c))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", config.DefaultPath, "Configuration file")

	return cmd
}

func encodedSize(c *snapshot.Canvas) int {
	n := 0
	for _, l := range c.Layers {
		n += len(l.Data)
	}
	return n
}
