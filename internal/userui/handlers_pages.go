package userui

import "net/http"

func (a *app) handleHome(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "home", a.base(r, "Home"))
}

func (a *app) handleAbout(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "about", a.base(r, "About Us"))
}

func (a *app) handleContact(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "contact", a.base(r, "Contact"))
}
