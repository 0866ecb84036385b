package storage

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/retry"
)

// DefaultBucket is the GridFS bucket name used when none is configured.
const DefaultBucket = "edgeprint"

// MongoStore stores blobs in a MongoDB GridFS bucket. Paths are file names.
type MongoStore struct {
	client *mongo.Client
	bucket *gridfs.Bucket
}

// MongoOptions configures NewMongoStore.
type MongoOptions struct {
	URI      string
	Database string
	Bucket   string        // defaults to DefaultBucket
	Timeout  time.Duration // per-operation timeout; zero means the driver default
}

// NewMongoStore connects to MongoDB and opens the GridFS bucket.
func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	if opts.URI == "" || opts.Database == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "mongo store needs a URI and a database")
	}
	if opts.Bucket == "" {
		opts.Bucket = DefaultBucket
	}

	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.Timeout > 0 {
		clientOpts.SetTimeout(opts.Timeout)
	}
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping mongo")
	}

	bucket, err := gridfs.NewBucket(client.Database(opts.Database), options.GridFSBucket().SetName(opts.Bucket))
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "open gridfs bucket %s", opts.Bucket)
	}
	return &MongoStore{client: client, bucket: bucket}, nil
}

// gridFile is the subset of a GridFS files document we read.
type gridFile struct {
	ID   primitive.ObjectID `bson:"_id"`
	Name string             `bson:"filename"`
}

// Download reads the newest revision of path.
func (s *MongoStore) Download(ctx context.Context, path string) ([]byte, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	stream, err := s.bucket.OpenDownloadStreamByName(path)
	if stderrors.Is(err, gridfs.ErrFileNotFound) {
		return nil, notFound(path)
	}
	if err != nil {
		return nil, classify(err, "download %s", path)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, classify(err, "read %s", path)
	}
	return data, nil
}

// Upload writes a new revision of path and deletes the older ones.
func (s *MongoStore) Upload(ctx context.Context, path string, data []byte) error {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	id, err := s.bucket.UploadFromStream(path, bytes.NewReader(data))
	if err != nil {
		return classify(err, "upload %s", path)
	}

	old, err := s.find(ctx, bson.M{"filename": path, "_id": bson.M{"$ne": id}})
	if err != nil {
		return err
	}
	for _, f := range old {
		if err := s.bucket.Delete(f.ID); err != nil && !stderrors.Is(err, gridfs.ErrFileNotFound) {
			return classify(err, "delete old revision of %s", path)
		}
	}
	return nil
}

// List returns the distinct file names with the prefix.
func (s *MongoStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := errors.ValidatePrefix(prefix); err != nil {
		return nil, err
	}
	files, err := s.find(ctx, prefixFilter(prefix))
	if err != nil {
		return nil, err
	}

	var out []string
	for _, f := range files {
		if len(out) == 0 || out[len(out)-1] != f.Name {
			out = append(out, f.Name)
		}
	}
	return out, nil
}

// Remove deletes every revision of every file with the prefix.
func (s *MongoStore) Remove(ctx context.Context, prefix string) error {
	if prefix == "" {
		return errors.New(errors.ErrCodeInvalidPath, "refusing to remove the whole store")
	}
	files, err := s.find(ctx, prefixFilter(prefix))
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := s.bucket.Delete(f.ID); err != nil && !stderrors.Is(err, gridfs.ErrFileNotFound) {
			return classify(err, "remove %s", f.Name)
		}
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]gridFile, error) {
	opts := options.GridFSFind().SetSort(bson.D{{Key: "filename", Value: 1}, {Key: "uploadDate", Value: 1}})
	cur, err := s.bucket.Find(filter, opts)
	if err != nil {
		return nil, classify(err, "query gridfs")
	}
	var files []gridFile
	if err := cur.All(ctx, &files); err != nil {
		return nil, classify(err, "query gridfs")
	}
	return files, nil
}

func prefixFilter(prefix string) bson.M {
	return bson.M{"filename": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
}

// classify wraps a driver error as STORAGE_ERROR, marking network failures
// and timeouts retryable.
func classify(err error, format string, args ...any) error {
	wrapped := errors.Wrap(errors.ErrCodeStorage, err, format, args...)
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return retry.Retryable(wrapped)
	}
	return wrapped
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
