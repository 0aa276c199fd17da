package bot

// =============================================================================
// General messages
// =============================================================================

const (
	MsgOk            = `Ok!`
	MsgUnexpectedErr = `Unexpected error: %s`
	MsgStartPrompt   = "Send a photo of the item you want to sell. I'll research the *%s* market and draft a listing.\n\nAdd a caption to research a different suburb for that photo."
	MsgSendPhoto     = "Send a photo of the item to start."
	MsgVersionInfo   = "Version: %s\nBuilt: %s"
)

// =============================================================================
// Analysis messages
// =============================================================================

const (
	MsgAnalysisProgress   = "⏳ %s"
	MsgAnalysisInProgress = "Still researching your previous photo. Please wait for it to finish."
	MsgAnalysisFailed     = "⚠️ %s"
	MsgUnclearPhoto       = "📷 %s"
	MsgNotAnImage         = "That file is not an image. Please send a photo."
	MsgListingNotFound    = "That listing is no longer available. Send the photo again."
	MsgResetDone          = "Ok, ready for the next photo."
)

// =============================================================================
// Strategy buttons
// =============================================================================

const (
	BtnStandard  = "Standard"
	BtnQuickSell = "Quick sell"
	BtnActiveFmt = "✓ %s"
)

// =============================================================================
// Location messages
// =============================================================================

const (
	MsgLocationCurrent = "Your location is *%s*.\n\nChange it with `/location <suburb>`."
	MsgLocationDefault = "No location set, using *%s*.\n\nSet yours with `/location <suburb>`."
	MsgLocationUpdated = "✅ Location updated: *%s*"
)

// =============================================================================
// History messages
// =============================================================================

const (
	MsgHistoryEmpty  = "No drafts yet. Send a photo to create one."
	MsgHistoryHeader = "*Recent drafts:*\n"
	MsgHistoryLine   = "• %s · %s · %s (%s)"
)

// =============================================================================
// Admin command messages
// =============================================================================

const (
	MsgAdminUsage           = "Usage:\n`/admin users add <user_id>`\n`/admin users remove <user_id>`\n`/admin users list`"
	MsgAdminUserAddUsage    = "Usage: `/admin users add <user_id>`"
	MsgAdminUserRemoveUsage = "Usage: `/admin users remove <user_id>`"
	MsgAdminUserInvalidID   = "Invalid user ID. Give a number."
	MsgAdminUserAdded       = "✅ User `%d` added."
	MsgAdminUserRemoved     = "🗑 User `%d` removed."
	MsgAdminNoUsers         = "No allowed users."
	MsgAdminAllowedUsers    = "*Allowed users:*\n"
	MsgAdminUserLine        = "• `%d` (added %s)"
)
