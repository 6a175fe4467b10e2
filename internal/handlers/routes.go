package handlers

import "github.com/Tyrowin/reddnotes/internal/dispatch"

const (
	typeAuth    = "auth"
	typeInfo    = "info"
	typeUser    = "user"
	typeNote    = "note"
	typeComment = "comment"
)

// Routes lists every operation the server exposes.
func (s *Service) Routes() []dispatch.Route {
	return []dispatch.Route{
		{Type: typeAuth, Action: "login", Method: "by data", Notify: dispatch.NotifyCaller, EstablishesIdentity: true, Handler: s.Login},
		{Type: typeAuth, Action: "login", Method: "by token", RequiresAuth: true, Notify: dispatch.NotifyCaller, EstablishesIdentity: true, Handler: s.LoginByToken},
		{Type: typeAuth, Action: "signup", Notify: dispatch.NotifyCaller, EstablishesIdentity: true, Handler: s.Signup},

		{Type: typeInfo, Action: actionCountUsers, Notify: dispatch.NotifyCaller, Handler: s.CountUsers},
		{Type: typeInfo, Action: actionCountNotes, Notify: dispatch.NotifyCaller, Handler: s.CountNotes},

		{Type: typeUser, Action: "update", RequiresAuth: true, Notify: dispatch.NotifyAll, Handler: s.UpdateUser},
		{Type: typeUser, Action: "get", Method: "all", RequiresAuth: true, Notify: dispatch.NotifyCaller, Handler: s.ListUsers},
		{Type: typeUser, Action: "get", Method: "one by token", RequiresAuth: true, Notify: dispatch.NotifyCaller, Handler: s.CurrentUser},
		{Type: typeUser, Action: "get", Method: "one by id", RequiresAuth: true, Notify: dispatch.NotifyCaller, Handler: s.UserByID},

		{Type: typeNote, Action: "get", Method: "all", RequiresAuth: true, Notify: dispatch.NotifyCaller, Handler: s.ListNotes},
		{Type: typeNote, Action: "create", RequiresAuth: true, Notify: dispatch.NotifyAll, Handler: s.CreateNote},
		{Type: typeNote, Action: "delete", RequiresAuth: true, Notify: dispatch.NotifyAll, Handler: s.DeleteNote},
		{Type: typeNote, Action: "reaction", Method: "set", RequiresAuth: true, Notify: dispatch.NotifyAll, Handler: s.SetReaction},
		{Type: typeNote, Action: "reaction", Method: "delete", RequiresAuth: true, Notify: dispatch.NotifyAll, Handler: s.DeleteReaction},
		{Type: typeNote, Action: "favorite", Method: "add", RequiresAuth: true, Notify: dispatch.NotifyCaller, Handler: s.AddFavorite},
		{Type: typeNote, Action: "favorite", Method: "delete", RequiresAuth: true, Notify: dispatch.NotifyCaller, Handler: s.DeleteFavorite},

		{Type: typeComment, Action: "create", RequiresAuth: true, Notify: dispatch.NotifyAll, Handler: s.CreateComment},
		{Type: typeComment, Action: "update", RequiresAuth: true, Notify: dispatch.NotifyAll, Handler: s.UpdateComment},
		{Type: typeComment, Action: "delete", RequiresAuth: true, Notify: dispatch.NotifyAll, Handler: s.DeleteComment},
	}
}
