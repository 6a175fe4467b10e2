package apperr

// User facing messages shared by handlers.
const (
	MsgValueMissing    = "Value is missing"
	MsgIncorrectData   = "Incorrect data entered"
	MsgValidation      = "Validation error"
	MsgInvalidID       = "Invalid id"
	MsgNotFoundUser    = "Not found user"
	MsgNotFoundNote    = "Not found note"
	MsgNotFoundComment = "Not found comment"
	MsgDuplicateUser   = "User with this nickname already exist"
	MsgForbidden       = "You are not allowed to do this operation"
	MsgForbiddenNote   = "You are not allowed to do operations with this note"
	MsgForbiddenCmt    = "You are not allowed to do operations with this comment"
	MsgReactionExists  = "You have already reacted to this note"
	MsgReactionMissing = "You have not reacted to this note"
	MsgFavoriteExists  = "Note is already in favorites"
	MsgFavoriteMissing = "Note is not in favorites"
	MsgMissingToken    = "Missing authorization token"
	MsgInvalidToken    = "Token is not valid"
	MsgInvalidJSON     = "Messages must be valid JSON"
	MsgMissingType     = "Message must contain a type"
	MsgRateLimited     = "Too many requests, slow down"
)
