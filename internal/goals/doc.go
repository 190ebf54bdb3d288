// Package goals defines the value objects produced by the questionnaire: one
// CategoryGoal per life category plus the movie title, optional appearance,
// and conversation id.
package goals
