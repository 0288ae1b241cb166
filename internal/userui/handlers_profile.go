package userui

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/upload"
)

const (
	msgChooseImage   = "Please choose an image"
	msgImagesOnly    = "Images only."
	msgImageTooLarge = "Image must be 2 MB or smaller."
	msgPhotoUpdated  = "Profile photo updated."
	msgProfileSaved  = "Profile updated."

	// Room for the multipart envelope around a maximum size image.
	multipartSlack = 64 << 10
)

func (a *app) handleProfileGet(w http.ResponseWriter, r *http.Request) {
	user, _ := a.currentUser(r)
	v := profileView{
		baseView:    a.base(r, "Your Profile"),
		DisplayName: user.DisplayName,
		Email:       user.Email,
	}
	for _, p := range domain.Providers {
		if user.ExternalIDs[p] != "" {
			v.Linked = append(v.Linked, p)
		}
	}
	v.Messages = a.flashes(r, flashProfile)
	a.render(w, r, http.StatusOK, "profile", v)
}

func (a *app) handleProfilePost(w http.ResponseWriter, r *http.Request) {
	user, _ := a.currentUser(r)
	if err := r.ParseForm(); err != nil {
		a.flash(w, r, flashProfile, "Invalid form submission.")
		http.Redirect(w, r, "/profile", http.StatusFound)
		return
	}

	err := a.profileSvc.UpdateProfile(r.Context(), user.ID, r.PostFormValue("displayName"), r.PostFormValue("email"))
	var verr *domain.ValidationError
	switch {
	case err == nil:
		a.flash(w, r, flashProfile, msgProfileSaved)
	case errors.As(err, &verr):
		for _, msg := range validationMessages(verr) {
			a.flash(w, r, flashProfile, msg)
		}
	default:
		a.logger.Error("userui: update profile failed", "user_id", user.ID, "err", err)
		a.renderServerError(w, r, err)
		return
	}
	http.Redirect(w, r, "/profile", http.StatusFound)
}

// handleProfilePhoto stores the "avatar" file and points the user at it.
// Rejected uploads leave both the store and the user untouched.
func (a *app) handleProfilePhoto(w http.ResponseWriter, r *http.Request) {
	user, _ := a.currentUser(r)
	reject := func(msg string) {
		a.flash(w, r, flashProfile, msg)
		http.Redirect(w, r, "/profile", http.StatusFound)
	}

	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxAvatarBytes+multipartSlack)
	file, hdr, err := r.FormFile("avatar")
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			reject(msgImageTooLarge)
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			reject(msgChooseImage)
		default:
			a.logger.Warn("userui: read upload failed", "user_id", user.ID, "err", err)
			reject(msgChooseImage)
		}
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}
	if hdr.Size > upload.MaxAvatarBytes {
		reject(msgImageTooLarge)
		return
	}

	img, err := upload.Validate(file, hdr.Filename)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrNoFile):
			reject(msgChooseImage)
		case errors.Is(err, upload.ErrTooLarge):
			reject(msgImageTooLarge)
		case errors.Is(err, upload.ErrNotImage):
			reject(msgImagesOnly)
		default:
			a.logger.Warn("userui: read upload failed", "user_id", user.ID, "err", err)
			reject(msgChooseImage)
		}
		return
	}

	name := upload.ObjectName(user.ID, time.Now(), img.Ext)
	if err := a.uploads.Save(r.Context(), name, img.ContentType, img.Data); err != nil {
		a.logger.Error("userui: save avatar failed", "user_id", user.ID, "err", err)
		a.renderServerError(w, r, err)
		return
	}
	if err := a.profileSvc.UpdateAvatar(r.Context(), user.ID, upload.PublicURL(name)); err != nil {
		if derr := a.uploads.Delete(r.Context(), name); derr != nil {
			a.logger.Warn("userui: remove orphaned avatar failed", "name", name, "err", derr)
		}
		a.logger.Error("userui: update avatar failed", "user_id", user.ID, "err", err)
		a.renderServerError(w, r, err)
		return
	}
	if old, ok := upload.NameFromURL(user.AvatarURL); ok && old != name {
		if err := a.uploads.Delete(r.Context(), old); err != nil {
			a.logger.Warn("userui: remove previous avatar failed", "name", old, "err", err)
		}
	}

	a.logger.Info("userui: avatar updated", "user_id", user.ID, "name", name, "bytes", len(img.Data))
	a.flash(w, r, flashProfile, msgPhotoUpdated)
	http.Redirect(w, r, "/profile", http.StatusFound)
}

func (a *app) handleUpload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !upload.ValidName(name) {
		a.handleNotFound(w, r)
		return
	}
	obj, err := a.uploads.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, upload.ErrNotFound) {
			a.handleNotFound(w, r)
			return
		}
		a.logger.Error("userui: open upload failed", "name", name, "err", err)
		a.renderServerError(w, r, err)
		return
	}
	defer obj.Body.Close()

	h := w.Header()
	if upload.RasterType(obj.ContentType) {
		h.Set("Content-Type", obj.ContentType)
	} else {
		h.Set("Content-Type", "application/octet-stream")
		h.Set("Content-Disposition", "attachment")
	}
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Content-Security-Policy", "default-src 'none'; sandbox")
	h.Set("Cache-Control", "public, max-age=86400")

	if rs, ok := obj.Body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, obj.ModTime, rs)
		return
	}
	if obj.Size > 0 {
		h.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	if !obj.ModTime.IsZero() {
		h.Set("Last-Modified", obj.ModTime.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		a.logger.Warn("userui: stream upload failed", "name", name, "err", err)
	}
}
