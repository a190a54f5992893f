// models/comments.go
package models

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

const maxCommentRunes = 5000

type Comment struct {
	ID        string     `json:"id"`
	AuthorID  string     `json:"author_id"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"created_at"`
	Edited    bool       `json:"edited"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	Likes     []string   `json:"likes"`
	ReplyIDs  []string   `json:"-"`
}

type Reply struct {
	ID        string     `json:"id"`
	ParentID  string     `json:"parent_id"`
	AuthorID  string     `json:"author_id"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"created_at"`
	Edited    bool       `json:"edited"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	Likes     []string   `json:"likes"`
}

// CommentView is the ordered, nested shape handed to API clients.
type CommentView struct {
	Comment
	Replies []Reply `json:"replies"`
}

// CommentThread indexes comments and replies by ID and keeps display order
// in Order (top level) and Comment.ReplyIDs (per comment).
type CommentThread struct {
	Order    []string
	Comments map[string]*Comment
	Replies  map[string]*Reply
}

func (t *CommentThread) init() {
	if t.Comments == nil {
		t.Comments = make(map[string]*Comment)
	}
	if t.Replies == nil {
		t.Replies = make(map[string]*Reply)
	}
}

// Len counts comments plus replies.
func (t *CommentThread) Len() int {
	return len(t.Comments) + len(t.Replies)
}

// CleanCommentText trims and bounds comment text.
func CleanCommentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", E("comment", ErrValidation, "comment text is required")
	}
	if utf8.RuneCountInString(text) > maxCommentRunes {
		return "", E("comment", ErrValidation, "comment text exceeds %d characters", maxCommentRunes)
	}
	return text, nil
}

// Add appends a top-level comment. Text must already be cleaned.
func (t *CommentThread) Add(id, authorID, text string, now time.Time) *Comment {
	t.init()
	c := &Comment{ID: id, AuthorID: authorID, Text: text, CreatedAt: now, Likes: []string{}}
	t.Comments[id] = c
	t.Order = append(t.Order, id)
	return c
}

func (t *CommentThread) AddReply(parentID, id, authorID, text string, now time.Time) (*Reply, error) {
	t.init()
	parent, ok := t.Comments[parentID]
	if !ok {
		return nil, E("add reply", ErrNotFound, "comment %s not found", parentID)
	}
	r := &Reply{ID: id, ParentID: parentID, AuthorID: authorID, Text: text, CreatedAt: now, Likes: []string{}}
	t.Replies[id] = r
	parent.ReplyIDs = append(parent.ReplyIDs, id)
	return r, nil
}

// ParentOf reports the parent comment of a reply, or "" for top-level comments.
func (t *CommentThread) ParentOf(id string) (string, bool) {
	if _, ok := t.Comments[id]; ok {
		return "", true
	}
	if r, ok := t.Replies[id]; ok {
		return r.ParentID, true
	}
	return "", false
}

func (t *CommentThread) AuthorOf(id string) (string, bool) {
	if c, ok := t.Comments[id]; ok {
		return c.AuthorID, true
	}
	if r, ok := t.Replies[id]; ok {
		return r.AuthorID, true
	}
	return "", false
}

// Edit rewrites the text of a comment or reply. Only the author may edit.
func (t *CommentThread) Edit(id, actorID, text string, now time.Time) error {
	author, ok := t.AuthorOf(id)
	if !ok {
		return E("edit comment", ErrNotFound, "comment %s not found", id)
	}
	if author != actorID {
		return E("edit comment", ErrForbidden, "only the author can edit this comment")
	}
	edited := now
	if c, ok := t.Comments[id]; ok {
		c.Text, c.Edited, c.EditedAt = text, true, &edited
		return nil
	}
	r := t.Replies[id]
	r.Text, r.Edited, r.EditedAt = text, true, &edited
	return nil
}

// Delete removes a comment with all its replies, or a single reply. The author
// or the video's uploader may delete. Returns the number of removed entities.
func (t *CommentThread) Delete(id, actorID, uploaderID string) (int, error) {
	author, ok := t.AuthorOf(id)
	if !ok {
		return 0, E("delete comment", ErrNotFound, "comment %s not found", id)
	}
	if actorID != author && actorID != uploaderID {
		return 0, E("delete comment", ErrForbidden, "only the author or the uploader can delete this comment")
	}
	if c, ok := t.Comments[id]; ok {
		removed := 1 + len(c.ReplyIDs)
		for _, rid := range c.ReplyIDs {
			delete(t.Replies, rid)
		}
		delete(t.Comments, id)
		t.Order = slices.DeleteFunc(t.Order, func(s string) bool { return s == id })
		return removed, nil
	}
	r := t.Replies[id]
	if parent, ok := t.Comments[r.ParentID]; ok {
		parent.ReplyIDs = slices.DeleteFunc(parent.ReplyIDs, func(s string) bool { return s == id })
	}
	delete(t.Replies, id)
	return 1, nil
}

// ToggleLike flips the user's like on a comment or reply.
func (t *CommentThread) ToggleLike(id, userID string) (liked bool, count int, err error) {
	if c, ok := t.Comments[id]; ok {
		c.Likes, liked = toggleUser(c.Likes, userID)
		return liked, len(c.Likes), nil
	}
	if r, ok := t.Replies[id]; ok {
		r.Likes, liked = toggleUser(r.Likes, userID)
		return liked, len(r.Likes), nil
	}
	return false, 0, E("like comment", ErrNotFound, "comment %s not found", id)
}

// View returns comments in insertion order with their replies nested.
func (t *CommentThread) View() []CommentView {
	out := make([]CommentView, 0, len(t.Order))
	for _, id := range t.Order {
		c, ok := t.Comments[id]
		if !ok {
			continue
		}
		cv := CommentView{Comment: *c, Replies: make([]Reply, 0, len(c.ReplyIDs))}
		for _, rid := range c.ReplyIDs {
			if r, ok := t.Replies[rid]; ok {
				cv.Replies = append(cv.Replies, *r)
			}
		}
		out = append(out, cv)
	}
	return out
}

func (t CommentThread) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.View())
}

func (t CommentThread) Clone() CommentThread {
	out := CommentThread{
		Order:    slices.Clone(t.Order),
		Comments: make(map[string]*Comment, len(t.Comments)),
		Replies:  make(map[string]*Reply, len(t.Replies)),
	}
	for id, c := range t.Comments {
		cc := *c
		cc.Likes = slices.Clone(c.Likes)
		cc.ReplyIDs = slices.Clone(c.ReplyIDs)
		if c.EditedAt != nil {
			at := *c.EditedAt
			cc.EditedAt = &at
		}
		out.Comments[id] = &cc
	}
	for id, r := range t.Replies {
		rc := *r
		rc.Likes = slices.Clone(r.Likes)
		if r.EditedAt != nil {
			at := *r.EditedAt
			rc.EditedAt = &at
		}
		out.Replies[id] = &rc
	}
	return out
}
