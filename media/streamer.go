package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	log "github.com/sirupsen/logrus"
)

// ProcessStreamer resolves a source with yt-dlp and transcodes it to 20ms
// opus pages with ffmpeg
type ProcessStreamer struct {
	YtDlpPath  string
	FFmpegPath string
}

// NewProcessStreamer creates a streamer using the given executables
func NewProcessStreamer(ytDlpPath, ffmpegPath string) *ProcessStreamer {
	return &ProcessStreamer{
		YtDlpPath:  ytDlpPath,
		FFmpegPath: ffmpegPath,
	}
}

func (s *ProcessStreamer) downloadArgs(source string) []string {
	return []string{
		"--quiet",
		"--no-playlist",
		"-f", "bestaudio/best",
		"-o", "-",
		source,
	}
}

func (s *ProcessStreamer) transcodeArgs() []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-vn",
		"-c:a", "libopus",
		"-b:a", "96k",
		"-ar", "48000",
		"-ac", "2",
		"-frame_duration", "20",
		"-application", "audio",
		// One opus packet per ogg page
		"-page_duration", "20000",
		"-f", "ogg",
		"pipe:1",
	}
}

// Stream runs yt-dlp piped into ffmpeg and passes every opus packet to sink
func (s *ProcessStreamer) Stream(ctx context.Context, source string, sink func(frame []byte) error) error {
	download := exec.CommandContext(ctx, s.YtDlpPath, s.downloadArgs(source)...)
	transcode := exec.CommandContext(ctx, s.FFmpegPath, s.transcodeArgs()...)

	var downloadErr, transcodeErr bytes.Buffer
	download.Stderr = &downloadErr
	transcode.Stderr = &transcodeErr

	audio, err := download.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open yt-dlp output: %w", err)
	}
	transcode.Stdin = audio

	pages, err := transcode.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open ffmpeg output: %w", err)
	}

	if err := download.Start(); err != nil {
		return fmt.Errorf("failed to start yt-dlp: %w", err)
	}
	if err := transcode.Start(); err != nil {
		_ = download.Process.Kill()
		_ = download.Wait()
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	streamErr := ReadOpus(pages, sink)
	if streamErr != nil {
		// Stop the producers so Wait returns
		_ = transcode.Process.Kill()
		_ = download.Process.Kill()
	}

	transcodeWait := transcode.Wait()
	downloadWait := download.Wait()

	if streamErr != nil {
		return streamErr
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if downloadWait != nil {
		return fmt.Errorf("yt-dlp failed: %w: %s", downloadWait, downloadErr.String())
	}
	if transcodeWait != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", transcodeWait, transcodeErr.String())
	}
	return nil
}

var opusTagsMagic = []byte("OpusTags")

// ReadOpus demuxes an ogg/opus stream and passes each page payload to sink.
// The OpusHead and OpusTags header pages are skipped.
func ReadOpus(r io.Reader, sink func(frame []byte) error) error {
	reader, header, err := oggreader.NewWith(r)
	if err != nil {
		return fmt.Errorf("failed to read ogg header: %w", err)
	}
	log.WithFields(log.Fields{
		"channels":    header.Channels,
		"sample_rate": header.SampleRate,
	}).Debug("Opened opus stream")

	for {
		payload, _, err := reader.ParseNextPage()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read ogg page: %w", err)
		}
		if len(payload) == 0 || bytes.HasPrefix(payload, opusTagsMagic) {
			continue
		}
		if err := sink(payload); err != nil {
			return err
		}
	}
}
