package handlers

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	clipsv1 "viralcut/internal/contracts/clips/v1"
	"viralcut/internal/httpkit"
	"viralcut/internal/outputs"
	"viralcut/internal/pkg/errors"
)

const (
	// uploadMemory is the multipart part size kept in memory before
	// spilling to a temp file.
	uploadMemory = 32 << 20
	uploadField  = "video"
)

// Upload stores a multipart "video" file as <uuid>-<name> in the upload dir.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) error {
	const op = "http.upload"

	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		return errors.WrapWithCode(err, errors.CodeValidation, op, "No file uploaded")
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeValidation, op, "No file uploaded").WithField("field", uploadField)
	}
	defer file.Close()

	name := uploadName(header.Filename)
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return errors.Wrap(err, op, "failed to prepare upload dir")
	}
	dst := filepath.Join(h.uploadDir, name)

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrap(err, op, "failed to store upload")
	}
	n, err := io.Copy(out, file)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return errors.Wrap(err, op, "failed to store upload")
	}

	h.log.FromContext(r.Context()).Info("upload stored", "filename", name, "size_bytes", n)
	httpkit.WriteJSON(w, http.StatusOK, clipsv1.UploadResponse{
		Message:  "File uploaded successfully",
		Filename: name,
		Path:     dst,
		Type:     "local",
	})
	return nil
}

func uploadName(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	if base == "." || base == "/" || base == "" {
		base = "video.mp4"
	}
	return uuid.NewString() + "-" + base
}

// ImportURL inspects a remote source. Platform links are checked for
// reachability and report their title.
func (h *Handler) ImportURL(w http.ResponseWriter, r *http.Request) error {
	const op = "http.import_url"

	var req clipsv1.ImportURLRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		return err
	}
	link := strings.TrimSpace(req.URL)
	if link == "" {
		return errors.ValidationField("url", "URL is required")
	}

	resp := clipsv1.ImportURLResponse{Filename: link, Path: link, Type: "url"}
	if h.links != nil && h.links.IsPlatformLink(link) {
		info, err := h.links.Info(r.Context(), link)
		if err != nil {
			return errors.WrapWithCode(err, errors.CodeUpstream, op, "Failed to access video URL")
		}
		resp.Type = "youtube"
		resp.Metadata = &clipsv1.URLMetadata{Title: info.Title}
	}

	httpkit.WriteJSON(w, http.StatusOK, resp)
	return nil
}

// ProcessClips renders a batch and answers once every clip is done.
func (h *Handler) ProcessClips(w http.ResponseWriter, r *http.Request) error {
	var req clipsv1.ProcessRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		return err
	}

	resp, err := h.pipeline.Process(r.Context(), req, nil)
	if err != nil {
		return err
	}
	httpkit.WriteJSON(w, http.StatusOK, resp)
	return nil
}

// Generated streams a rendered clip from the output store.
func (h *Handler) Generated(w http.ResponseWriter, r *http.Request) error {
	key := outputs.Prefix + "/" + chi.URLParam(r, "*")

	rc, ct, size, err := h.clips.Open(r.Context(), key)
	if err != nil {
		return err
	}
	defer rc.Close()

	w.Header().Set("Content-Type", ct)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if r.Method == http.MethodHead {
		return nil
	}
	_, _ = io.Copy(w, rc)
	return nil
}
