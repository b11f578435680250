package model

// Topic is a forum discussion thread. Votes and CommentCount are owned by the
// backend and are never computed locally.
type Topic struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	UserID       string `json:"userId"`
	Votes        int    `json:"votes"`
	CreatedAt    string `json:"createdAt"`
	IsDeleted    bool   `json:"isDeleted"`
	IsEdited     bool   `json:"isEdited"`
	CommentCount *int   `json:"commentCount,omitempty"`
}

// Comment belongs to a topic. ParentID allows one level of threading.
type Comment struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId"`
	Content   string  `json:"content"`
	CreatedAt string  `json:"createdAt"`
	ParentID  *string `json:"parentId"`
	IsDeleted bool    `json:"isDeleted"`
	IsEdited  bool    `json:"isEdited"`
}

type TopicSort string

const (
	TopicSortNew TopicSort = "new"
	TopicSortHot TopicSort = "hot"
	TopicSortTop TopicSort = "top"
)

type TopicsParams struct {
	Sort  TopicSort `json:"sort,omitempty"`
	Limit int       `json:"limit,omitempty"`
	Page  int       `json:"page,omitempty"`
}

type CreateTopic struct {
	UserID  string `json:"userId"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type VoteTopic struct {
	UserID  string `json:"userId"`
	TopicID string `json:"topicId"`
	Value   int    `json:"value"`
}

type UpdateTopic struct {
	TopicID string `json:"topicId"`
	UserID  string `json:"userId"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

type DeleteTopic struct {
	TopicID string `json:"topicId"`
	UserID  string `json:"userId"`
}

type CreateComment struct {
	UserID   string  `json:"userId"`
	TopicID  string  `json:"topicId"`
	Content  string  `json:"content"`
	ParentID *string `json:"parentId"`
}

type UpdateComment struct {
	CommentID string `json:"commentId"`
	UserID    string `json:"userId"`
	Content   string `json:"content"`
}

type DeleteComment struct {
	CommentID string `json:"commentId"`
	UserID    string `json:"userId"`
}

// ValidVote reports whether v is an accepted vote value.
func ValidVote(v int) bool {
	return v == 1 || v == -1
}
