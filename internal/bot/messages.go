package bot

const (
	msgWelcome = "👋 Hi! I watch Upwork searches for you and send a message as soon as a new job shows up."

	msgHelp = `Commands:
/addtopic [topic] - track a search topic
/removetopic - stop tracking a topic
/topics - list your topics
/cancel - cancel the current action
/help - show this message`

	msgSendTopic         = "Send me the topic you want to track, or /cancel."
	msgEmptyTopic        = "The topic can't be empty. Send me a topic, or /cancel."
	msgTopicTooLong      = "That topic is too long (max %d bytes). Send me a shorter one, or /cancel."
	msgConfirm           = "Subscribe to <b>%s</b>?"
	msgSubscribed        = "✅ Subscribed to <b>%s</b>. I'll let you know about new jobs."
	msgAlreadySubscribed = "You are already subscribed to <b>%s</b>."
	msgRemoved           = "🗑 Unsubscribed from <b>%s</b>."
	msgAlreadyRemoved    = "The topic <b>%s</b> was already removed."
	msgPickRemove        = "Which topic do you want to remove?"
	msgNoTopics          = "You have no topics yet. Use /addtopic to add one."
	msgCancelled         = "Cancelled."
	msgNothingToCancel   = "Nothing to cancel."
	msgUseHelp           = "I didn't get that. Use /help to see what I can do."
	msgUnknownCommand    = "Unknown command. Use /help to see what I can do."
	msgInternalError     = "⚠️ Something went wrong, please try again later."
)
