// Package assembly implements synchronization: it stitches clips and the
// audio track into a single reel and measures the properties the quality
// review needs. Assembly is metadata-driven; the clip and track payloads
// stay at their storage refs and are composed by reference.
package assembly

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/reelsmith/internal/types"
)

// AssemblyError represents a failure to compose the final reel.
type AssemblyError struct {
	Message string
	Cause   error
}

func (e *AssemblyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("assembly error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("assembly error: %s", e.Message)
}

func (e *AssemblyError) Unwrap() error {
	return e.Cause
}

// Assembler composes final reels from generated parts.
type Assembler struct{}

// New creates an assembler.
func New() *Assembler {
	return &Assembler{}
}

// Assemble orders clips by scene, verifies they share a resolution, and
// muxes in the audio track. The returned artifact carries the measured
// durations the technical checks compare.
func (a *Assembler) Assemble(ctx context.Context, clips []types.VideoArtifact, audio *types.AudioArtifact) (*types.FinalArtifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(clips) == 0 {
		return nil, &AssemblyError{Message: "no clips to assemble"}
	}

	ordered := make([]types.VideoArtifact, len(clips))
	copy(ordered, clips)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].SceneNumber < ordered[j].SceneNumber
	})

	resolution := ordered[0].Resolution
	var videoDuration float64
	for _, clip := range ordered {
		if clip.Ref == "" {
			return nil, &AssemblyError{Message: fmt.Sprintf("scene %d clip has no storage ref", clip.SceneNumber)}
		}
		if clip.Resolution != resolution {
			return nil, &AssemblyError{
				Message: fmt.Sprintf("scene %d resolution %s does not match %s", clip.SceneNumber, clip.Resolution, resolution),
			}
		}
		videoDuration += clip.DurationActual
	}

	var audioDuration float64
	hasAllTracks := false
	if audio != nil && audio.Ref != "" {
		audioDuration = audio.DurationActual
		hasAllTracks = true
	}

	return &types.FinalArtifact{
		Ref:            reelRef(ordered, audio),
		DurationActual: videoDuration,
		AudioDuration:  audioDuration,
		Resolution:     resolution,
		HasAllTracks:   hasAllTracks,
	}, nil
}

// reelRef derives a stable storage ref from the composed parts.
func reelRef(clips []types.VideoArtifact, audio *types.AudioArtifact) string {
	var parts []string
	for _, clip := range clips {
		parts = append(parts, clip.Ref)
	}
	if audio != nil {
		parts = append(parts, audio.Ref)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return "reel:" + hex.EncodeToString(sum[:8])
}
