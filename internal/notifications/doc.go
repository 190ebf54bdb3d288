// Package notifications pushes pipeline milestones to an ntfy topic.
//
// The topic comes from [notifications].ntfy_topic (or MINDMOVIE_NTFY_TOPIC) and
// may be a full URL or a bare topic name on ntfy.sh. When no topic is set the
// service is a no-op, so pipeline code can notify unconditionally.
package notifications
