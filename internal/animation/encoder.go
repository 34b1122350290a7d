package animation

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/icza/mjpeg"
)

const jpegQuality = 85

// Encoder turns rendered PNG frames into a video file. Frames are packed
// into a Motion-JPEG AVI; when ffmpeg is on the PATH the AVI is transcoded
// to H.264 MP4 afterwards.
type Encoder struct {
	tempDir    string
	ffmpegPath string
}

// NewEncoder creates an encoder writing its scratch files under tempDir.
func NewEncoder(tempDir string) *Encoder {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		ffmpegPath = ""
	}
	return &Encoder{tempDir: tempDir, ffmpegPath: ffmpegPath}
}

// HasFFmpeg reports whether MP4 output is available.
func (e *Encoder) HasFFmpeg() bool { return e.ffmpegPath != "" }

// Format returns the container format the encoder will produce.
func (e *Encoder) Format() string {
	if e.HasFFmpeg() {
		return "mp4"
	}
	return "avi"
}

// ContentType returns the MIME type matching Format.
func (e *Encoder) ContentType() string {
	return VideoContentType(e.Format())
}

// VideoContentType returns the MIME type for a container format.
func VideoContentType(format string) string {
	if format == "mp4" {
		return "video/mp4"
	}
	return "video/x-msvideo"
}

// Encode writes the video and returns its bytes along with the container
// format actually produced, which can differ from Format when the MP4
// transcode fails. renderFrame is called once per frame index and must
// return the frame as PNG bytes; frameDone, if non-nil, is invoked after
// each frame is packed.
func (e *Encoder) Encode(jobID string, width, height, fps, frameCount int, renderFrame func(i int) ([]byte, error), frameDone func(i int)) ([]byte, string, error) {
	aviPath := filepath.Join(e.tempDir, fmt.Sprintf("anim_%s.avi", jobID))
	defer os.Remove(aviPath)

	aw, err := mjpeg.New(aviPath, int32(width), int32(height), int32(fps))
	if err != nil {
		return nil, "", fmt.Errorf("create avi writer: %w", err)
	}

	for i := 0; i < frameCount; i++ {
		pngBytes, err := renderFrame(i)
		if err != nil {
			aw.Close()
			return nil, "", fmt.Errorf("frame %d: %w", i, err)
		}

		jpegBytes, err := pngToJPEG(pngBytes)
		if err != nil {
			aw.Close()
			return nil, "", fmt.Errorf("frame %d: %w", i, err)
		}

		if err := aw.AddFrame(jpegBytes); err != nil {
			aw.Close()
			return nil, "", fmt.Errorf("pack frame %d: %w", i, err)
		}

		if frameDone != nil {
			frameDone(i)
		}
	}

	if err := aw.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize avi: %w", err)
	}

	if !e.HasFFmpeg() {
		video, err := os.ReadFile(aviPath)
		return video, "avi", err
	}

	mp4Path := filepath.Join(e.tempDir, fmt.Sprintf("anim_%s.mp4", jobID))
	defer os.Remove(mp4Path)

	if err := e.transcode(aviPath, mp4Path); err != nil {
		// Fall back to the AVI rather than failing the whole job.
		fmt.Printf("[Anim %s] ffmpeg transcode failed, serving AVI: %v\n", shortID(jobID), err)
		video, err := os.ReadFile(aviPath)
		return video, "avi", err
	}

	video, err := os.ReadFile(mp4Path)
	return video, "mp4", err
}

func (e *Encoder) transcode(in, out string) error {
	cmd := exec.Command(e.ffmpegPath,
		"-y",
		"-i", in,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", err, lastLine(stderr.String()))
	}
	return nil
}

func pngToJPEG(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func lastLine(s string) string {
	lines := bytes.Split(bytes.TrimSpace([]byte(s)), []byte("\n"))
	if len(lines) == 0 {
		return ""
	}
	return string(lines[len(lines)-1])
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
