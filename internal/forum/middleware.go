package forum

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hoppafit/website/internal/errresponse"
	"github.com/hoppafit/website/internal/respond"
)

type ctxKey int8

const (
	ctxKeyTopicID ctxKey = iota
	ctxKeyCommentID
)

// TopicCtx validates the {topicID} URL parameter and puts it on the
// request context. A missing id stops the request with a 400.
func TopicCtx(next http.Handler) http.Handler {
	return idCtx("topicID", ctxKeyTopicID, "Invalid topic ID", next)
}

// CommentCtx is TopicCtx for {commentID}.
func CommentCtx(next http.Handler) http.Handler {
	return idCtx("commentID", ctxKeyCommentID, "Invalid comment ID", next)
}

func idCtx(param string, key ctxKey, msg string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, param)
		if id == "" {
			respond.Error(w, r, errresponse.ErrMessage(http.StatusBadRequest, msg))

			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), key, id)))
	})
}

func topicID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyTopicID).(string)

	return id
}

func commentID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyCommentID).(string)

	return id
}
