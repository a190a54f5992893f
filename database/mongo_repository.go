// database/mongo_repository.go
package database

import (
	"context"
	"errors"
	"time"

	"github.com/BotCoder254/streamvibes/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository stores one document per video. Updates are compare-and-swap
// on the version field.
type MongoRepository struct {
	collection *mongo.Collection
}

type viewDoc struct {
	Timestamp time.Time `bson:"timestamp"`
	ViewerID  string    `bson:"viewerId,omitempty"`
}

type replyDoc struct {
	ID        string     `bson:"id"`
	AuthorID  string     `bson:"authorId"`
	Text      string     `bson:"text"`
	CreatedAt time.Time  `bson:"createdAt"`
	Edited    bool       `bson:"edited"`
	EditedAt  *time.Time `bson:"editedAt,omitempty"`
	Likes     []string   `bson:"likes"`
}

type commentDoc struct {
	ID        string     `bson:"id"`
	AuthorID  string     `bson:"authorId"`
	Text      string     `bson:"text"`
	CreatedAt time.Time  `bson:"createdAt"`
	Edited    bool       `bson:"edited"`
	EditedAt  *time.Time `bson:"editedAt,omitempty"`
	Likes     []string   `bson:"likes"`
	Replies   []replyDoc `bson:"replies"`
}

type videoDoc struct {
	ID                    string       `bson:"_id"`
	Title                 string       `bson:"title"`
	Description           string       `bson:"description"`
	Category              string       `bson:"category"`
	UploaderID            string       `bson:"uploaderId"`
	FileName              string       `bson:"fileName"`
	VideoPath             string       `bson:"videoPath"`
	ThumbnailPath         string       `bson:"thumbnailPath"`
	Duration              float64      `bson:"duration"`
	Width                 int          `bson:"width"`
	Height                int          `bson:"height"`
	Status                string       `bson:"status"`
	ErrorMessage          string       `bson:"errorMessage,omitempty"`
	Views                 int64        `bson:"views"`
	ViewsHistory          []viewDoc    `bson:"viewsHistory"`
	Likes                 []string     `bson:"likes"`
	Dislikes              []string     `bson:"dislikes"`
	WatchTimeDistribution []int64      `bson:"watchTimeDistribution"`
	TotalWatchTime        float64      `bson:"totalWatchTime"`
	Comments              []commentDoc `bson:"comments"`
	Tags                  []string     `bson:"tags"`
	Version               int64        `bson:"version"`
	CreatedAt             time.Time    `bson:"createdAt"`
	UpdatedAt             time.Time    `bson:"updatedAt"`
}

func NewMongoRepository(client *mongo.Client, dbName, collectionName string) *MongoRepository {
	return &MongoRepository{collection: client.Database(dbName).Collection(collectionName)}
}

func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "uploaderId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *MongoRepository) Create(ctx context.Context, v *models.Video) error {
	v.Version = 1
	if _, err := r.collection.InsertOne(ctx, toDoc(v)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.E("create video", models.ErrConflict, "video %s already exists", v.ID)
		}
		return models.Wrap("create video", models.ErrStorage, err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*models.Video, error) {
	var doc videoDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.E("get video", models.ErrNotFound, "video %s not found", id)
		}
		return nil, models.Wrap("get video", models.ErrStorage, err)
	}
	return fromDoc(doc), nil
}

func (r *MongoRepository) List(ctx context.Context, filter models.VideoFilter) ([]*models.Video, error) {
	query := bson.M{}
	if filter.UploaderID != "" {
		query["uploaderId"] = filter.UploaderID
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if len(filter.IDs) > 0 {
		query["_id"] = bson.M{"$in": filter.IDs}
	}
	if !filter.CreatedBefore.IsZero() {
		query["createdAt"] = bson.M{"$lt": filter.CreatedBefore}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, models.Wrap("list videos", models.ErrStorage, err)
	}
	defer cursor.Close(ctx)

	var docs []videoDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, models.Wrap("list videos", models.ErrStorage, err)
	}
	out := make([]*models.Video, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromDoc(d))
	}
	return out, nil
}

// Update re-reads and retries when another writer bumped the version first.
func (r *MongoRepository) Update(ctx context.Context, id string, mutate func(*models.Video) error) (*models.Video, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		expected := current.Version
		if err := mutate(current); err != nil {
			return nil, err
		}
		current.ID = id
		current.Version = expected + 1

		res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": id, "version": expected}, toDoc(current))
		if err != nil {
			return nil, models.Wrap("update video", models.ErrStorage, err)
		}
		if res.MatchedCount == 1 {
			return current, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, models.Wrap("update video", models.ErrStorage, err)
		}
	}
	return nil, models.Wrap("update video", models.ErrStorage, models.ErrConflict)
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return models.Wrap("delete video", models.ErrStorage, err)
	}
	if res.DeletedCount == 0 {
		return models.E("delete video", models.ErrNotFound, "video %s not found", id)
	}
	return nil
}

func toDoc(v *models.Video) videoDoc {
	doc := videoDoc{
		ID:                    v.ID,
		Title:                 v.Title,
		Description:           v.Description,
		Category:              string(v.Category),
		UploaderID:            v.UploaderID,
		FileName:              v.FileName,
		VideoPath:             v.VideoPath,
		ThumbnailPath:         v.ThumbnailPath,
		Duration:              v.Duration,
		Width:                 v.Width,
		Height:                v.Height,
		Status:                string(v.Status),
		ErrorMessage:          v.ErrorMessage,
		Views:                 v.Views,
		ViewsHistory:          make([]viewDoc, 0, len(v.ViewsHistory)),
		Likes:                 nonNil(v.Likes),
		Dislikes:              nonNil(v.Dislikes),
		WatchTimeDistribution: v.WatchTimeDistribution[:],
		TotalWatchTime:        v.TotalWatchTime,
		Comments:              make([]commentDoc, 0, len(v.Comments.Order)),
		Tags:                  nonNil(v.Tags),
		Version:               v.Version,
		CreatedAt:             v.CreatedAt,
		UpdatedAt:             v.UpdatedAt,
	}
	for _, e := range v.ViewsHistory {
		doc.ViewsHistory = append(doc.ViewsHistory, viewDoc{Timestamp: e.Timestamp, ViewerID: e.ViewerID})
	}
	for _, cv := range v.Comments.View() {
		cd := commentDoc{
			ID:        cv.ID,
			AuthorID:  cv.AuthorID,
			Text:      cv.Text,
			CreatedAt: cv.CreatedAt,
			Edited:    cv.Edited,
			EditedAt:  cv.EditedAt,
			Likes:     nonNil(cv.Likes),
			Replies:   make([]replyDoc, 0, len(cv.Replies)),
		}
		for _, rp := range cv.Replies {
			cd.Replies = append(cd.Replies, replyDoc{
				ID:        rp.ID,
				AuthorID:  rp.AuthorID,
				Text:      rp.Text,
				CreatedAt: rp.CreatedAt,
				Edited:    rp.Edited,
				EditedAt:  rp.EditedAt,
				Likes:     nonNil(rp.Likes),
			})
		}
		doc.Comments = append(doc.Comments, cd)
	}
	return doc
}

func fromDoc(doc videoDoc) *models.Video {
	v := &models.Video{
		ID:             doc.ID,
		Title:          doc.Title,
		Description:    doc.Description,
		Category:       models.Category(doc.Category),
		UploaderID:     doc.UploaderID,
		FileName:       doc.FileName,
		VideoPath:      doc.VideoPath,
		ThumbnailPath:  doc.ThumbnailPath,
		Duration:       doc.Duration,
		Width:          doc.Width,
		Height:         doc.Height,
		Status:         models.Status(doc.Status),
		ErrorMessage:   doc.ErrorMessage,
		Views:          doc.Views,
		Likes:          doc.Likes,
		Dislikes:       doc.Dislikes,
		TotalWatchTime: doc.TotalWatchTime,
		Tags:           doc.Tags,
		Version:        doc.Version,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
	copy(v.WatchTimeDistribution[:], doc.WatchTimeDistribution)
	for _, e := range doc.ViewsHistory {
		v.ViewsHistory = append(v.ViewsHistory, models.ViewEvent{Timestamp: e.Timestamp, ViewerID: e.ViewerID})
	}
	for _, cd := range doc.Comments {
		c := v.Comments.Add(cd.ID, cd.AuthorID, cd.Text, cd.CreatedAt)
		c.Edited, c.EditedAt, c.Likes = cd.Edited, cd.EditedAt, nonNil(cd.Likes)
		for _, rd := range cd.Replies {
			rp, err := v.Comments.AddReply(cd.ID, rd.ID, rd.AuthorID, rd.Text, rd.CreatedAt)
			if err != nil {
				continue
			}
			rp.Edited, rp.EditedAt, rp.Likes = rd.Edited, rd.EditedAt, nonNil(rd.Likes)
		}
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
