// Copyright (c) 2025 VocalBridge
//
// Licensed under the MIT License. See LICENSE for details.

package internal_recorder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/zaf/g711"

	"github.com/vocalbridge/vocalbridge/pkg/commons"
)

// Capture encoding is fixed by the telephony provider: mono μ-law at 8 kHz.
const (
	captureSampleRate = 8000
	captureChannels   = 1
)

// Converter turns a raw capture file into a playable container. On success
// the raw file is deleted and the converted path returned; on failure the
// raw file is preserved for manual recovery. Conversion is best-effort and
// never affects the call that produced the capture.
type Converter interface {
	Convert(ctx context.Context, rawPath string) (string, error)
}

func wavPath(rawPath string) string {
	return strings.TrimSuffix(rawPath, ".raw") + ".wav"
}

// finishConversion validates the converted output and removes the raw file.
// An absent or empty output counts as a conversion failure.
func finishConversion(rawPath, outPath string) (string, error) {
	info, err := os.Stat(outPath)
	if err != nil {
		return "", fmt.Errorf("converted file missing: %w", err)
	}
	if info.Size() == 0 {
		os.Remove(outPath)
		return "", fmt.Errorf("converted file is empty: %s", outPath)
	}
	if err := os.Remove(rawPath); err != nil {
		return "", fmt.Errorf("failed to remove raw capture: %w", err)
	}
	return outPath, nil
}

// FFmpegConverter shells out to an external decoder with the provider's
// fixed encoding parameters.
type FFmpegConverter struct {
	logger commons.Logger
	binary string
}

// NewFFmpegConverter builds a converter around the given ffmpeg binary.
func NewFFmpegConverter(logger commons.Logger, binary string) *FFmpegConverter {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegConverter{logger: logger, binary: binary}
}

func (c *FFmpegConverter) Convert(ctx context.Context, rawPath string) (string, error) {
	outPath := wavPath(rawPath)

	cmd := exec.CommandContext(ctx, c.binary,
		"-y",
		"-f", "mulaw",
		"-ar", fmt.Sprintf("%d", captureSampleRate),
		"-ac", fmt.Sprintf("%d", captureChannels),
		"-i", rawPath,
		outPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("decoder exited abnormally: %w: %s", err, strings.TrimSpace(string(output)))
	}

	converted, err := finishConversion(rawPath, outPath)
	if err != nil {
		return "", err
	}
	c.logger.Infow("capture converted", "path", converted)
	return converted, nil
}

// NativeConverter decodes μ-law in-process and renders a WAV container,
// for deployments without an ffmpeg binary on the host.
type NativeConverter struct {
	logger commons.Logger
}

// NewNativeConverter builds the in-process converter.
func NewNativeConverter(logger commons.Logger) *NativeConverter {
	return &NativeConverter{logger: logger}
}

func (c *NativeConverter) Convert(ctx context.Context, rawPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, err := os.ReadFile(rawPath)
	if err != nil {
		return "", fmt.Errorf("failed to read raw capture: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("raw capture is empty: %s", rawPath)
	}

	pcm := g711.DecodeUlaw(raw)
	outPath := wavPath(rawPath)
	if err := os.WriteFile(outPath, renderWAV(pcm, captureSampleRate, captureChannels), 0o644); err != nil {
		return "", fmt.Errorf("failed to write converted file: %w", err)
	}

	converted, err := finishConversion(rawPath, outPath)
	if err != nil {
		return "", err
	}
	c.logger.Infow("capture converted", "path", converted)
	return converted, nil
}
