// models/reaction.go
package models

import "slices"

// Reaction is the per-(video,user) state on the like axis.
type Reaction string

const (
	ReactionNone     Reaction = "none"
	ReactionLiked    Reaction = "liked"
	ReactionDisliked Reaction = "disliked"
)

type Vote string

const (
	VoteLike    Vote = "like"
	VoteDislike Vote = "dislike"
)

// NextReaction is the transition table. Voting for the current state toggles it off.
func NextReaction(current Reaction, vote Vote) Reaction {
	switch vote {
	case VoteLike:
		if current == ReactionLiked {
			return ReactionNone
		}
		return ReactionLiked
	case VoteDislike:
		if current == ReactionDisliked {
			return ReactionNone
		}
		return ReactionDisliked
	}
	return current
}

func (v *Video) ReactionOf(userID string) Reaction {
	if userID == "" {
		return ReactionNone
	}
	if slices.Contains(v.Likes, userID) {
		return ReactionLiked
	}
	if slices.Contains(v.Dislikes, userID) {
		return ReactionDisliked
	}
	return ReactionNone
}

// React applies a vote and rewrites both sets from the resulting state, so a
// user can never end up in likes and dislikes at once.
func (v *Video) React(userID string, vote Vote) Reaction {
	next := NextReaction(v.ReactionOf(userID), vote)
	v.setReaction(userID, next)
	return next
}

func (v *Video) setReaction(userID string, r Reaction) {
	v.Likes = removeUser(v.Likes, userID)
	v.Dislikes = removeUser(v.Dislikes, userID)
	switch r {
	case ReactionLiked:
		v.Likes = append(v.Likes, userID)
	case ReactionDisliked:
		v.Dislikes = append(v.Dislikes, userID)
	}
}

func removeUser(set []string, userID string) []string {
	return slices.DeleteFunc(set, func(id string) bool { return id == userID })
}

func toggleUser(set []string, userID string) ([]string, bool) {
	if slices.Contains(set, userID) {
		return removeUser(set, userID), false
	}
	return append(set, userID), true
}
