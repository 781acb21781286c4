// Package gridfs stores blobs in a MongoDB GridFS bucket.
//
// GridFS splits files into 255 KiB chunks, so there is no practical size
// ceiling beyond MAX_UPLOAD_BYTES. The blob's content type, uploader and
// category live in the GridFS file document's metadata field:
//
//	{ _id, filename, length, uploadDate,
//	  metadata: { contentType, uploadedBy, category } }
package gridfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nebula-auto-parts/storefront/internal/apperror"
	"github.com/nebula-auto-parts/storefront/internal/blob"
)

// BucketName is the GridFS bucket prefix (collections images.files and
// images.chunks).
const BucketName = "images"

var _ blob.Store = (*Store)(nil)

// Store is a blob.Store backed by GridFS.
type Store struct {
	client *mongo.Client
	bucket *gridfs.Bucket
	logger *slog.Logger
}

type fileMetadata struct {
	ContentType string `bson:"contentType"`
	UploadedBy  string `bson:"uploadedBy"`
	Category    string `bson:"category"`
}

type fileDocument struct {
	ID         primitive.ObjectID `bson:"_id"`
	Filename   string             `bson:"filename"`
	Length     int64              `bson:"length"`
	UploadDate time.Time          `bson:"uploadDate"`
	Metadata   fileMetadata       `bson:"metadata"`
}

// Connect dials MongoDB, verifies the connection and opens the images
// bucket in database dbName. The returned Store owns the client; call Close
// on shutdown.
func Connect(ctx context.Context, uri, dbName string, logger *slog.Logger) (*Store, error) {
	if uri == "" {
		return nil, errors.New("gridfs: MONGO_URI is required")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("gridfs: connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("gridfs: pinging mongo: %w", err)
	}

	bucket, err := gridfs.NewBucket(
		client.Database(dbName),
		options.GridFSBucket().SetName(BucketName),
	)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("gridfs: opening bucket: %w", err)
	}

	logger.Info("gridfs blob store connected",
		slog.String("database", dbName),
		slog.String("bucket", BucketName),
	)

	return &Store{client: client, bucket: bucket, logger: logger}, nil
}

// Close disconnects the underlying Mongo client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Put uploads b.Data as a new GridFS file.
func (s *Store) Put(ctx context.Context, b *blob.Blob) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id := primitive.NewObjectID()
	meta := fileMetadata{
		ContentType: b.ContentType,
		UploadedBy:  b.UploadedBy,
		Category:    b.Category,
	}

	err := s.bucket.UploadFromStreamWithID(
		id,
		b.Filename,
		bytes.NewReader(b.Data),
		options.GridFSUpload().SetMetadata(meta),
	)
	if err != nil {
		return fmt.Errorf("gridfs: uploading %q: %w", b.Filename, err)
	}

	b.ID = id.Hex()
	b.Size = int64(len(b.Data))
	b.CreatedAt = time.Now()
	return nil
}

// Get reads the file document and its content.
func (s *Store) Get(ctx context.Context, id string) (*blob.Blob, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.NotFound("image", id)
	}

	cursor, err := s.bucket.FindContext(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, fmt.Errorf("gridfs: finding %s: %w", id, err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return nil, fmt.Errorf("gridfs: finding %s: %w", id, err)
		}
		return nil, apperror.NotFound("image", id)
	}

	var doc fileDocument
	if err := cursor.Decode(&doc); err != nil {
		return nil, fmt.Errorf("gridfs: decoding file document %s: %w", id, err)
	}

	var buf bytes.Buffer
	if _, err := s.bucket.DownloadToStream(oid, &buf); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, apperror.NotFound("image", id)
		}
		return nil, fmt.Errorf("gridfs: downloading %s: %w", id, err)
	}

	return &blob.Blob{
		ID:          doc.ID.Hex(),
		Filename:    doc.Filename,
		ContentType: doc.Metadata.ContentType,
		Size:        doc.Length,
		UploadedBy:  doc.Metadata.UploadedBy,
		Category:    doc.Metadata.Category,
		Data:        buf.Bytes(),
		CreatedAt:   doc.UploadDate,
	}, nil
}

// Delete removes the file document and all of its chunks.
func (s *Store) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperror.NotFound("image", id)
	}

	if err := s.bucket.DeleteContext(ctx, oid); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return apperror.NotFound("image", id)
		}
		return fmt.Errorf("gridfs: deleting %s: %w", id, err)
	}
	return nil
}
