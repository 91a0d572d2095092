package service

import (
	"context"
	"fmt"

	"carmarket/logger"
	"carmarket/models"
	"carmarket/repository"
	"carmarket/search"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	EventCommentAdded = "comment_added"
	EventReplyAdded   = "reply_added"
)

// Notifier delivers realtime events to a connected user. Delivery is best effort.
type Notifier interface {
	NotifyUser(userID, eventType string, payload interface{})
}

type noopNotifier struct{}

func (noopNotifier) NotifyUser(string, string, interface{}) {}

// ThreadRef names a post and optionally one of its comments and one of that comment's replies.
type ThreadRef struct {
	PostID    string
	CommentID string
	ReplyID   string
}

// Thread is a resolved ThreadRef. Comment is set when CommentID was given and
// Reply when ReplyID was given; containment has already been checked.
type Thread struct {
	Post    *models.Post
	Comment *models.Comment
	Reply   *models.Comment
}

type CreatePostInput struct {
	ID  string `json:"_id"`
	Car string `json:"car"`
}

type PostService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	cars     repository.CarRepository
	users    repository.UserRepository
	notifier Notifier
}

func NewPostService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	cars repository.CarRepository,
	users repository.UserRepository,
	notifier Notifier,
) *PostService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &PostService{posts: posts, comments: comments, cars: cars, users: users, notifier: notifier}
}

// ResolveThread loads every document ref names and verifies that each one is
// contained in its parent. Every comment and reply operation goes through here.
func (s *PostService) ResolveThread(ctx context.Context, ref ThreadRef) (*Thread, error) {
	postID, err := parseID("post", ref.PostID)
	if err != nil {
		return nil, err
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	thread := &Thread{Post: post}
	if ref.CommentID == "" {
		return thread, nil
	}

	commentID, err := parseID("comment", ref.CommentID)
	if err != nil {
		return nil, err
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if !post.HasComment(commentID) {
		return nil, models.NewInvalidRelationshipError(
			fmt.Sprintf("Comment %s does not belong to post %s", ref.CommentID, ref.PostID))
	}
	thread.Comment = comment
	if ref.ReplyID == "" {
		return thread, nil
	}

	replyID, err := parseID("reply", ref.ReplyID)
	if err != nil {
		return nil, err
	}
	reply, err := s.comments.GetByID(ctx, replyID)
	if err != nil {
		return nil, err
	}
	if !comment.HasReply(replyID) {
		return nil, models.NewInvalidRelationshipError(
			fmt.Sprintf("Reply %s does not belong to comment %s", ref.ReplyID, ref.CommentID))
	}
	thread.Reply = reply
	return thread, nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput, publisherID string) (*models.Post, error) {
	if in.Car == "" {
		return nil, models.NewInvalidInputError("car is required")
	}
	carID, err := parseID("car", in.Car)
	if err != nil {
		return nil, err
	}
	postID, err := parseOptionalID("post", in.ID)
	if err != nil {
		return nil, err
	}
	publisher, err := parseID("user", publisherID)
	if err != nil {
		return nil, err
	}
	if _, err := s.cars.GetByID(ctx, carID); err != nil {
		return nil, err
	}

	post := &models.Post{ID: postID, Car: carID, Publisher: publisher}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	postID, err := parseID("post", id)
	if err != nil {
		return nil, err
	}
	return s.posts.GetByID(ctx, postID)
}

// List returns every post, or with a non-empty filter only the posts whose car
// matches it. Cars are matched first and posts are then selected by car id.
func (s *PostService) List(ctx context.Context, filter search.Filter) ([]models.Post, error) {
	if filter.IsEmpty() {
		return s.posts.FindAll(ctx)
	}
	carIDs, err := s.cars.FindIDs(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.posts.FindByCars(ctx, carIDs)
}

// UpdatePost points the post at another car. Only the publisher may do this.
func (s *PostService) UpdatePost(ctx context.Context, id, carHex, callerID string) (*models.Post, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.IsPublishedBy(callerID) {
		return nil, models.NewUnauthorizedError("Only the publisher can update this post")
	}
	carID, err := parseID("car", carHex)
	if err != nil {
		return nil, err
	}
	if _, err := s.cars.GetByID(ctx, carID); err != nil {
		return nil, err
	}
	return s.posts.SetCar(ctx, post.ID, carID)
}

// DeletePost removes the post with its comments and replies. The car stays.
func (s *PostService) DeletePost(ctx context.Context, id, callerID string) (*models.Post, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.IsPublishedBy(callerID) {
		return nil, models.NewUnauthorizedError("Only the publisher can delete this post")
	}
	if err := s.deletePostTree(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// DeletePostsOfCar cascades a car removal to every post that references it.
func (s *PostService) DeletePostsOfCar(ctx context.Context, carID primitive.ObjectID) (int, error) {
	posts, err := s.posts.FindByCars(ctx, []primitive.ObjectID{carID})
	if err != nil {
		return 0, err
	}
	for i := range posts {
		if err := s.deletePostTree(ctx, &posts[i]); err != nil {
			return i, err
		}
	}
	return len(posts), nil
}

// deletePostTree runs replies, then comments, then the post. A failure midway
// leaves what was already deleted deleted.
func (s *PostService) deletePostTree(ctx context.Context, post *models.Post) error {
	comments, err := s.comments.GetMany(ctx, post.Comments)
	if err != nil {
		return err
	}

	var replies int64
	for _, c := range comments {
		n, err := s.comments.DeleteMany(ctx, c.Replies)
		if err != nil {
			return err
		}
		replies += n
	}
	removed, err := s.comments.DeleteMany(ctx, post.Comments)
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return err
	}

	logger.Logger(ctx).WithFields(logrus.Fields{
		"post_id":  post.ID.Hex(),
		"comments": removed,
		"replies":  replies,
	}).Info("post deleted")
	return nil
}

// AddComment creates a comment and appends it to the post's list.
func (s *PostService) AddComment(ctx context.Context, postID, text, publisherID string) (*models.Post, error) {
	thread, err := s.ResolveThread(ctx, ThreadRef{PostID: postID})
	if err != nil {
		return nil, err
	}
	if err := requireText(text); err != nil {
		return nil, err
	}
	publisher, err := parseID("user", publisherID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{Publisher: publisher, Text: text}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	post, err := s.posts.PushComment(ctx, thread.Post.ID, comment.ID)
	if err != nil {
		return nil, err
	}

	if !post.IsPublishedBy(publisherID) {
		s.notifier.NotifyUser(post.Publisher.Hex(), EventCommentAdded, map[string]interface{}{
			"postId":  post.ID.Hex(),
			"comment": comment,
		})
	}
	return post, nil
}

// AddReply creates a reply under thread.Comment.
func (s *PostService) AddReply(ctx context.Context, thread *Thread, text, publisherID string) (*models.Comment, error) {
	if thread.Comment == nil {
		return nil, models.NewInvalidInputError("comment id is required")
	}
	if err := requireText(text); err != nil {
		return nil, err
	}
	publisher, err := parseID("user", publisherID)
	if err != nil {
		return nil, err
	}

	reply := &models.Comment{Publisher: publisher, Text: text}
	if err := s.comments.Create(ctx, reply); err != nil {
		return nil, err
	}
	parent, err := s.comments.PushReply(ctx, thread.Comment.ID, reply.ID)
	if err != nil {
		return nil, err
	}

	if !parent.IsPublishedBy(publisherID) {
		s.notifier.NotifyUser(parent.Publisher.Hex(), EventReplyAdded, map[string]interface{}{
			"postId":    thread.Post.ID.Hex(),
			"commentId": parent.ID.Hex(),
			"reply":     reply,
		})
	}
	return parent, nil
}

func (s *PostService) EditComment(ctx context.Context, thread *Thread, text, callerID string) (*models.Comment, error) {
	return s.editText(ctx, thread.Comment, "comment", text, callerID)
}

func (s *PostService) EditReply(ctx context.Context, thread *Thread, text, callerID string) (*models.Comment, error) {
	return s.editText(ctx, thread.Reply, "reply", text, callerID)
}

func (s *PostService) editText(ctx context.Context, target *models.Comment, kind, text, callerID string) (*models.Comment, error) {
	if target == nil {
		return nil, models.NewInvalidInputError(kind + " id is required")
	}
	if !target.IsPublishedBy(callerID) {
		return nil, models.NewUnauthorizedError(fmt.Sprintf("Only the publisher can edit this %s", kind))
	}
	if err := requireText(text); err != nil {
		return nil, err
	}
	return s.comments.UpdateText(ctx, target.ID, text)
}

// DeleteComment removes the comment, its replies, and its id from the post.
func (s *PostService) DeleteComment(ctx context.Context, thread *Thread, callerID string) (*models.Comment, error) {
	comment := thread.Comment
	if comment == nil {
		return nil, models.NewInvalidInputError("comment id is required")
	}
	if !comment.IsPublishedBy(callerID) {
		return nil, models.NewUnauthorizedError("Only the publisher can delete this comment")
	}

	if _, err := s.comments.DeleteMany(ctx, comment.Replies); err != nil {
		return nil, err
	}
	if _, err := s.posts.PullComment(ctx, thread.Post.ID, comment.ID); err != nil {
		return nil, err
	}
	if err := s.comments.Delete(ctx, comment.ID); err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteReply removes the reply and its id from the parent comment.
func (s *PostService) DeleteReply(ctx context.Context, thread *Thread, callerID string) (*models.Comment, error) {
	reply := thread.Reply
	if reply == nil {
		return nil, models.NewInvalidInputError("reply id is required")
	}
	if !reply.IsPublishedBy(callerID) {
		return nil, models.NewUnauthorizedError("Only the publisher can delete this reply")
	}

	if _, err := s.comments.PullReply(ctx, thread.Comment.ID, reply.ID); err != nil {
		return nil, err
	}
	if err := s.comments.Delete(ctx, reply.ID); err != nil {
		return nil, err
	}
	return reply, nil
}
