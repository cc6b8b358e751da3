package editor

import (
	"bytes"
	"encoding/base64"
	"net/http"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/disintegration/imaging"

	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/model"
)

// resolveImageLocked resolves ref in the background and shows it in s,
// unless the navigation moved on or a new file was picked meanwhile.
func (c *Controller) resolveImageLocked(t *token, s *Session, ref string) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()

		url, err := c.images.ResolveImageURL(t.ctx, ref)

		c.mu.Lock()
		live := c.isCurrentLocked(t) && c.session == s
		if live && err == nil && s.PendingImage == nil {
			s.ImageSrc = url
		}
		c.mu.Unlock()

		if err != nil && live {
			c.logger.Warn("resolve image url", zap.String("ref", ref), zap.Error(err))
			c.notifier.Notify(NotifyError, err.Error(), 0)
		}
	}()
}

// SelectImage attaches a local file to the session. Nothing is uploaded until
// Save. A previously selected file and its preview are replaced.
func (c *Controller) SelectImage(img *model.PendingImage) error {
	if img == nil || len(img.Data) == 0 {
		return errors.Wrap(ErrInvalidInput, "empty image")
	}
	if len(img.Data) > c.opt.MaxImageBytes {
		c.notifier.Notify(NotifyWarning, "Image is too large", c.opt.NotifyDismiss)
		return errors.Wrapf(ErrInvalidInput, "image is %d bytes, limit %d", len(img.Data), c.opt.MaxImageBytes)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	s := c.session
	if s == nil {
		return ErrNoSession
	}

	s.PendingImage = img
	s.imageSeq++
	seq, t := s.imageSeq, c.tok

	c.bg.Add(1)
	go func() {
		defer c.bg.Done()

		src := renderPreview(img, c.opt.PreviewMaxWidth)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.isCurrentLocked(t) && c.session == s && s.imageSeq == seq {
			s.ImageSrc = src
		}
	}()

	return nil
}

// renderPreview encodes img as a data url, downscaled to maxWidth.
// Payloads that cannot be decoded are embedded as they are.
func renderPreview(img *model.PendingImage, maxWidth int) string {
	decoded, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		return rawDataURL(img)
	}

	if maxWidth > 0 && decoded.Bounds().Dx() > maxWidth {
		decoded = imaging.Resize(decoded, maxWidth, 0, imaging.Lanczos)
	}

	format, mime := imaging.PNG, "image/png"
	if f, err := imaging.FormatFromFilename(img.Name); err == nil && f == imaging.JPEG {
		format, mime = imaging.JPEG, "image/jpeg"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, decoded, format); err != nil {
		return rawDataURL(img)
	}

	return dataURL(mime, buf.Bytes())
}

func rawDataURL(img *model.PendingImage) string {
	mime := img.ContentType
	if mime == "" {
		mime = http.DetectContentType(img.Data)
	}

	return dataURL(mime, img.Data)
}

func dataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
