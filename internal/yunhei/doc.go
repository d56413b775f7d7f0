// Package yunhei implements the blacklist commands: single-account lookup,
// registration, the whole-group scan, the about card and the sleepwell mute.
//
// A Service is built from a Blacklist (the remote API) and a Moderator (the
// chat adapter). Every public method returns the text to reply with; errors
// are only returned alongside that text so callers can log and count them.
// All text derived from errors passes through the redact package first.
package yunhei
