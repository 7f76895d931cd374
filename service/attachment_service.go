package services

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"

	model "github.com/tannerws/SiteLine/models"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttachmentService stores uploaded files in an S3-compatible bucket and
// keeps a row per file keyed by (entityType, entityID) so aggregates can list
// their attachments.
type AttachmentService struct {
	db       *gorm.DB
	s3Client *s3.S3
	bucket   string
	baseURL  string
}

// NewAttachmentService configures the S3 client from STORAGE_* env vars. When
// they are absent (local development, tests) uploads are rejected but listing
// still works.
func NewAttachmentService(db *gorm.DB) *AttachmentService {
	svc := &AttachmentService{db: db}

	region := os.Getenv("STORAGE_REGION")
	endpoint := os.Getenv("STORAGE_S3_ENDPOINT")
	accessKey := os.Getenv("STORAGE_ACCESS_KEY")
	secretKey := os.Getenv("STORAGE_SECRET_KEY")
	svc.bucket = os.Getenv("STORAGE_BUCKET")
	svc.baseURL = os.Getenv("STORAGE_PUBLIC_URL")

	if region == "" || endpoint == "" || accessKey == "" || secretKey == "" || svc.bucket == "" {
		log.Println("Warning: S3 storage not fully configured; attachment uploads disabled")
		return svc
	}

	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String(region),
		Endpoint:         aws.String(endpoint),
		DisableSSL:       aws.Bool(false),
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		log.Printf("Warning: Failed to create AWS session, attachment uploads disabled: %v", err)
		return svc
	}
	svc.s3Client = s3.New(sess)
	return svc
}

// Upload pushes the file to the bucket under a fresh uuid key and records the
// attachment row.
func (s *AttachmentService) Upload(entityType string, entityID, uploaderID uint, file multipart.File, header *multipart.FileHeader) (*model.Attachment, error) {
	if s.s3Client == nil {
		return nil, newServiceError(KindValidation, "attachment storage is not configured")
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		log.Printf("[Upload] Error reading file: %v", err)
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	fileKey := uuid.NewString() + filepath.Ext(header.Filename)
	_, err = s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(fileKey),
		Body:        bytes.NewReader(fileBytes),
		ContentType: aws.String(header.Header.Get("Content-Type")),
	})
	if err != nil {
		log.Printf("[Upload] S3 upload error: %v", err)
		return nil, fmt.Errorf("failed to upload file to S3: %w", err)
	}

	attachment := model.Attachment{
		EntityType:   entityType,
		EntityID:     entityID,
		FileKey:      fileKey,
		OriginalName: header.Filename,
		MimeType:     header.Header.Get("Content-Type"),
		SizeBytes:    header.Size,
		UploadedByID: uploaderID,
	}
	if err := s.db.Create(&attachment).Error; err != nil {
		log.Printf("[Upload] Error saving attachment row: %v", err)
		return nil, fmt.Errorf("failed to save attachment: %w", err)
	}
	log.Printf("[Upload] Attachment %d stored for %s %d (%s)", attachment.ID, entityType, entityID, fileKey)
	return &attachment, nil
}

// ListAttachments returns the files attached to one entity, oldest first.
func (s *AttachmentService) ListAttachments(entityType string, entityID uint) ([]model.Attachment, error) {
	attachments := []model.Attachment{}
	err := s.db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("id ASC").Find(&attachments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attachments: %w", err)
	}
	return attachments, nil
}

// PublicURL assembles the storage URL for a stored file key.
func (s *AttachmentService) PublicURL(fileKey string) string {
	if s.baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, fileKey)
}
