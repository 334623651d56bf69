// Package pkg provides the core libraries for Spritestack sprite compositing.
//
// # Overview
//
// Spritestack stacks transparent sprite-sheet layers (a body, a head, a hat)
// into one sheet, slices the sheet into square cells and plays the cells as
// a walk-cycle animation. The pkg directory is organized into these areas:
//
//  1. Domain: [sprite] (layers, categories, frames), [layers] (ordered store
//     and randomize), [sheet] (grid and frame sequence), [compose]
//     (concurrent decode and ordered alpha compositing), [anim] (frame clock)
//  2. Output: [export] (PNG/BMP/TIFF encoding), [artifact] (directory and
//     MongoDB stores)
//  3. Infrastructure: [cache] (file, memory and Redis caches), [session]
//     (editing sessions), [observability] (hooks), [errors]
//  4. Orchestration: [pipeline] (cache-aware export), [studio] (one editing
//     session wiring everything together), [project] (TOML project files)
//
// # Architecture
//
// The typical data flow:
//
//	layer files (PNG, GIF, JPEG, BMP, TIFF, WebP)
//	         ↓
//	    [layers] store (order, visibility, randomize)
//	         ↓
//	    [compose] compositor (decode in parallel, paint in order)
//	         ↓
//	    [sheet] geometry (grid from the first decoded layer) → frame sequence
//	         ↓
//	    [anim] clock → current cell       [export] → PNG/BMP/TIFF
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/spritestack/pkg/pipeline"
//	    "github.com/matzehuels/spritestack/pkg/studio"
//	)
//
//	st, _ := studio.New(pipeline.NewRunner(nil, nil, nil, nil), pipeline.Options{Name: "knight"})
//	st.Intake(files, "base")
//	st.Refresh(ctx)
//	res, _ := st.Export(ctx)
//	os.WriteFile(res.Artifact.Name, res.Artifact.Data, 0644)
package pkg
