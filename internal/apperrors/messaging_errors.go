package apperrors

var (
	ErrUnauthenticated      = Unauthorized("sign in to use messages")
	ErrConversationNotFound = NotFound("conversation not found")
	ErrNotParticipant       = Forbidden("you are not part of this conversation")
	ErrMissingRecipient     = InvalidArg("either conversation_id or recipient_id is required")
	ErrSelfConversation     = InvalidArg("cannot start a conversation with yourself")
	ErrEmptyContent         = InvalidArg("message cannot be empty")
)
