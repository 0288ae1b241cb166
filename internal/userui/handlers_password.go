package userui

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

const (
	msgPasswordsMismatch = "New passwords do not match."
	msgChangeFailed      = "Current password incorrect or invalid new password."
	msgChangeOK          = "Password updated successfully."
	msgResetPrepared     = "If that email exists, a reset link was prepared."
	msgResetInvalid      = "Reset link is invalid or expired."
	msgResetMismatch     = "Passwords do not match."
	msgResetOK           = "Password reset successfully."
)

func resetFormURL(token string) string {
	return "/password?token=" + url.QueryEscape(token)
}

func (a *app) handlePasswordGet(w http.ResponseWriter, r *http.Request) {
	v := passwordView{baseView: a.base(r, "Password")}
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		if _, err := a.resetSvc.CheckResetToken(r.Context(), token); err != nil {
			if errors.Is(err, domain.ErrResetTokenInvalid) {
				a.flash(w, r, flashReset, msgResetInvalid)
				http.Redirect(w, r, "/password", http.StatusFound)
				return
			}
			a.logger.Error("userui: check reset token failed", "err", err)
			a.renderServerError(w, r, err)
			return
		}
		v.Token = token
	}
	if v.User != nil {
		v.ChangeMessages = a.flashes(r, flashChange)
	}
	v.ResetMessages = a.flashes(r, flashReset)
	a.render(w, r, http.StatusOK, "password", v)
}

func (a *app) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	user, _ := a.currentUser(r)
	if err := r.ParseForm(); err != nil {
		a.flash(w, r, flashChange, "Invalid form submission.")
		http.Redirect(w, r, "/password", http.StatusFound)
		return
	}

	form := changePasswordForm{
		CurrentPassword: r.PostFormValue("currentPassword"),
		NewPassword:     r.PostFormValue("newPassword"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}
	if err := a.validate.Struct(form); err != nil {
		if isMismatch(err) {
			a.flash(w, r, flashChange, msgPasswordsMismatch)
		} else {
			for _, msg := range formMessages(err) {
				a.flash(w, r, flashChange, msg)
			}
		}
		http.Redirect(w, r, "/password", http.StatusFound)
		return
	}

	err := a.authSvc.ChangePassword(r.Context(), user.ID, form.CurrentPassword, form.NewPassword)
	switch {
	case err == nil:
		a.logger.Info("userui: password changed", "user_id", user.ID)
		a.flash(w, r, flashChange, msgChangeOK)
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrValidation):
		a.flash(w, r, flashChange, msgChangeFailed)
	default:
		a.logger.Error("userui: change password failed", "user_id", user.ID, "err", err)
		a.renderServerError(w, r, err)
		return
	}
	http.Redirect(w, r, "/password", http.StatusFound)
}

func (a *app) handlePasswordForgot(w http.ResponseWriter, r *http.Request) {
	if !a.throttle.allow(r.Context(), throttleKey("forgot", r)) {
		v := passwordView{baseView: a.base(r, "Password")}
		v.ResetMessages = []string{msgTooManyAttempts}
		a.render(w, r, http.StatusTooManyRequests, "password", v)
		return
	}
	if err := r.ParseForm(); err != nil {
		a.flash(w, r, flashReset, "Invalid form submission.")
		http.Redirect(w, r, "/password", http.StatusFound)
		return
	}

	form := forgotForm{Email: strings.TrimSpace(r.PostFormValue("email"))}
	if err := a.validate.Struct(form); err != nil {
		for _, msg := range formMessages(err) {
			a.flash(w, r, flashReset, msg)
		}
		http.Redirect(w, r, "/password", http.StatusFound)
		return
	}

	token, err := a.resetSvc.IssueResetToken(r.Context(), form.Email)
	if err != nil {
		a.logger.Error("userui: issue reset token failed", "err", err)
		a.renderServerError(w, r, err)
		return
	}
	msg := msgResetPrepared
	if a.showResetLink {
		msg += " Link: /password/reset/" + url.PathEscape(token)
	}
	a.flash(w, r, flashReset, msg)
	http.Redirect(w, r, "/password", http.StatusFound)
}

func (a *app) handleResetGet(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if _, err := a.resetSvc.CheckResetToken(r.Context(), token); err != nil {
		if errors.Is(err, domain.ErrResetTokenInvalid) {
			a.flash(w, r, flashReset, msgResetInvalid)
			http.Redirect(w, r, "/password", http.StatusFound)
			return
		}
		a.logger.Error("userui: check reset token failed", "err", err)
		a.renderServerError(w, r, err)
		return
	}
	http.Redirect(w, r, resetFormURL(token), http.StatusFound)
}

func (a *app) handleResetPost(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if err := r.ParseForm(); err != nil {
		a.flash(w, r, flashReset, "Invalid form submission.")
		http.Redirect(w, r, resetFormURL(token), http.StatusFound)
		return
	}

	// An unknown or expired token wins over a form mistake.
	if _, err := a.resetSvc.CheckResetToken(r.Context(), token); err != nil {
		if errors.Is(err, domain.ErrResetTokenInvalid) {
			a.flash(w, r, flashReset, msgResetInvalid)
			http.Redirect(w, r, "/password", http.StatusFound)
			return
		}
		a.logger.Error("userui: check reset token failed", "err", err)
		a.renderServerError(w, r, err)
		return
	}

	form := resetPasswordForm{
		NewPassword:     r.PostFormValue("newPassword"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}
	if err := a.validate.Struct(form); err != nil {
		if isMismatch(err) {
			a.flash(w, r, flashReset, msgResetMismatch)
		} else {
			for _, msg := range formMessages(err) {
				a.flash(w, r, flashReset, msg)
			}
		}
		http.Redirect(w, r, resetFormURL(token), http.StatusFound)
		return
	}

	user, err := a.resetSvc.ConsumeResetToken(r.Context(), token, form.NewPassword)
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.Is(err, domain.ErrResetTokenInvalid):
			a.flash(w, r, flashReset, msgResetInvalid)
			http.Redirect(w, r, "/password", http.StatusFound)
		case errors.As(err, &verr):
			for _, msg := range validationMessages(verr) {
				a.flash(w, r, flashReset, msg)
			}
			http.Redirect(w, r, resetFormURL(token), http.StatusFound)
		default:
			a.logger.Error("userui: reset password failed", "err", err)
			a.renderServerError(w, r, err)
		}
		return
	}

	a.logger.Info("userui: password reset", "user_id", user.ID)
	if err := a.signIn(w, r, user); err != nil {
		a.logger.Error("userui: bind session failed", "user_id", user.ID, "err", err)
		a.renderServerError(w, r, err)
		return
	}
	a.flash(w, r, flashReset, msgResetOK)
	http.Redirect(w, r, "/password", http.StatusFound)
}
