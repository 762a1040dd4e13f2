package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/omnistor/omnistor/pkg/provider"
	"github.com/omnistor/omnistor/pkg/retry"
)

// Backend is the scheme/backend name reported in errors and URLs.
const Backend = "s3"

// Provider adapts AWS S3 and S3-compatible stores to the provider
// contract. Keys are paths; "directories" are key prefixes, optionally
// materialized as zero-byte marker objects with a trailing slash.
type Provider struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	maxKeys int32
	retry   retry.Config
}

var (
	_ provider.Provider          = (*Provider)(nil)
	_ provider.ContainerProvider = (*Provider)(nil)
	_ provider.BatchDeleter      = (*Provider)(nil)
	_ provider.MultipartUploader = (*Provider)(nil)
	_ provider.ServerSideCopier  = (*Provider)(nil)
	_ provider.MetadataWriter    = (*Provider)(nil)
	_ provider.Presigner         = (*Provider)(nil)
)

// New creates an S3 provider. Credentials resolve through the SDK
// default chain unless cfg carries explicit keys.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, &provider.OpError{
			Op:        "New",
			Backend:   Backend,
			Container: cfg.Bucket,
			Err:       err,
		}
	}

	s3Opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.UsePathStyle = cfg.ForcePathStyle
		},
	}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	if maxKeys > MaxAllowedKeys {
		maxKeys = MaxAllowedKeys
	}

	return &Provider{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		maxKeys: int32(maxKeys),
		retry:   retry.DefaultConfig(),
	}, nil
}

// loadAWSConfig builds the AWS configuration with the requested
// credentials and region resolution.
func loadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}
	awsCfg.Region = resolveRegion(cfg.Endpoint, awsCfg.Region)
	return awsCfg, nil
}

// resolveRegion applies the fallback default after SDK resolution.
// S3-compatible stores (custom endpoint) get no default; the endpoint
// may not want one.
func resolveRegion(endpoint, sdkRegion string) string {
	if sdkRegion != "" {
		return sdkRegion
	}
	if endpoint == "" {
		return DefaultAWSRegion
	}
	return ""
}

func (p *Provider) Scheme() string { return Backend }

func (p *Provider) Capabilities() provider.CapabilitySet {
	return provider.NewCapabilitySet(
		provider.CapList, provider.CapRead, provider.CapWrite,
		provider.CapDelete, provider.CapMkdir, provider.CapRmdir,
		provider.CapCopy, provider.CapMove, provider.CapServerSideCopy,
		provider.CapDownload, provider.CapUpload, provider.CapBatchDelete,
		provider.CapMetadata, provider.CapPresignedURLs, provider.CapContainers,
	)
}

// Close satisfies the contract; the S3 client needs no cleanup.
func (p *Provider) Close() error { return nil }

// do runs fn under the provider's retry policy. fn must wrap its own
// errors so the retry predicate sees mapped sentinels.
func (p *Provider) do(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, p.retry, fn)
}

// List returns one page of entries under the prefix path. Non-recursive
// listings group keys at the first delimiter into directory entries.
func (p *Provider) List(ctx context.Context, path string, opts provider.ListOptions) (*provider.ListResult, error) {
	prefix := path
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	maxKeys := p.maxKeys
	if opts.MaxEntries > 0 && int32(opts.MaxEntries) < maxKeys {
		maxKeys = int32(opts.MaxEntries)
	}

	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(p.bucket),
		MaxKeys: aws.Int32(maxKeys),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if !opts.Recursive {
		input.Delimiter = aws.String("/")
	}
	if opts.ContinuationToken != "" {
		input.ContinuationToken = aws.String(opts.ContinuationToken)
	}

	var out *s3.ListObjectsV2Output
	err := p.do(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = p.client.ListObjectsV2(ctx, input)
		if callErr != nil {
			return p.wrapError("List", path, callErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	entries := make([]provider.Entry, 0, len(out.CommonPrefixes)+len(out.Contents))
	for _, cp := range out.CommonPrefixes {
		entries = append(entries, provider.NewEntry(aws.ToString(cp.Prefix), provider.EntryDirectory, 0, time.Time{}))
	}
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		if key == prefix {
			// The prefix's own directory marker is not a child.
			continue
		}
		typ := provider.EntryFile
		if strings.HasSuffix(key, "/") {
			typ = provider.EntryDirectory
		}
		e := provider.NewEntry(key, typ, aws.ToInt64(obj.Size), aws.ToTime(obj.LastModified))
		if etag := cleanETag(aws.ToString(obj.ETag)); etag != "" {
			e.Metadata = map[string]string{provider.MetaETag: etag}
		}
		entries = append(entries, e)
	}

	res := &provider.ListResult{
		Entries:     entries,
		IsTruncated: aws.ToBool(out.IsTruncated),
	}
	if out.NextContinuationToken != nil {
		res.ContinuationToken = *out.NextContinuationToken
	}
	return res, nil
}

// Stat returns metadata for one object. A path with a trailing slash
// resolves against the directory marker, falling back to a one-key
// prefix probe for markerless directories.
func (p *Provider) Stat(ctx context.Context, path string) (*provider.Entry, error) {
	var out *s3.HeadObjectOutput
	err := p.do(ctx, func(ctx context.Context) error {
		var callErr error
		out, callErr = p.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(path),
		})
		if callErr != nil {
			return p.wrapError("Stat", path, callErr)
		}
		return nil
	})
	if err != nil {
		if provider.IsNotFound(err) && strings.HasSuffix(path, "/") {
			return p.statPrefix(ctx, path)
		}
		return nil, err
	}

	typ := provider.EntryFile
	if strings.HasSuffix(path, "/") {
		typ = provider.EntryDirectory
	}
	e := provider.NewEntry(path, typ, aws.ToInt64(out.ContentLength), aws.ToTime(out.LastModified))
	e.Metadata = map[string]string{}
	if etag := cleanETag(aws.ToString(out.ETag)); etag != "" {
		e.Metadata[provider.MetaETag] = etag
	}
	if ct := aws.ToString(out.ContentType); ct != "" {
		e.Metadata[provider.MetaContentType] = ct
	}
	for k, v := range out.Metadata {
		e.Metadata[k] = v
	}
	return &e, nil
}

// statPrefix reports a directory entry when at least one key lives
// under the prefix, marker object or not.
func (p *Provider) statPrefix(ctx context.Context, path string) (*provider.Entry, error) {
	out, err := p.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(p.bucket),
		Prefix:  aws.String(path),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, p.wrapError("Stat", path, err)
	}
	if len(out.Contents) == 0 {
		return nil, &provider.OpError{Op: "Stat", Backend: Backend, Container: p.bucket, Path: path, Err: provider.ErrNotFound}
	}
	e := provider.NewEntry(path, provider.EntryDirectory, 0, time.Time{})
	return &e, nil
}

func (p *Provider) Exists(ctx context.Context, path string) (bool, error) {
	_, err := p.Stat(ctx, path)
	if err != nil {
		if provider.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Read streams an object. Offset/Length select a byte range.
func (p *Provider) Read(ctx context.Context, path string, opts provider.ReadOptions) (io.ReadCloser, int64, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(path),
	}
	if opts.Offset > 0 || opts.Length > 0 {
		input.Range = aws.String(rangeHeader(opts.Offset, opts.Length))
	}

	out, err := p.client.GetObject(ctx, input)
	if err != nil {
		return nil, 0, p.wrapError("Read", path, err)
	}
	return out.Body, aws.ToInt64(out.ContentLength), nil
}

// rangeHeader formats an HTTP Range header value. Length zero means
// everything from offset to the end.
func rangeHeader(offset, length int64) string {
	if length <= 0 {
		return fmt.Sprintf("bytes=%d-", offset)
	}
	return fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)
}

// Write uploads an object in one call. S3 puts always replace; when
// Overwrite is false an existence probe runs first.
func (p *Provider) Write(ctx context.Context, path string, body io.Reader, size int64, opts provider.WriteOptions) error {
	if !opts.Overwrite {
		exists, err := p.Exists(ctx, path)
		if err != nil {
			return err
		}
		if exists {
			return &provider.OpError{
				Op: "Write", Backend: Backend, Container: p.bucket, Path: path,
				Err: errors.New("object already exists"),
			}
		}
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(path),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}

	if _, err := p.client.PutObject(ctx, input); err != nil {
		return p.wrapError("Write", path, err)
	}
	return nil
}

// Mkdir materializes a directory as a zero-byte marker object.
func (p *Provider) Mkdir(ctx context.Context, path string) error {
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(path),
		Body:          strings.NewReader(""),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return p.wrapError("Mkdir", path, err)
	}
	return nil
}

// Delete removes one object. S3 deletes are idempotent, so a missing
// key never fails regardless of MissingOK.
func (p *Provider) Delete(ctx context.Context, path string, opts provider.DeleteOptions) error {
	return p.do(ctx, func(ctx context.Context) error {
		_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(path),
		})
		if err != nil {
			return p.wrapError("Delete", path, err)
		}
		return nil
	})
}

// DeleteBatch removes up to MaxAllowedKeys objects in one call.
func (p *Provider) DeleteBatch(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	objects := make([]types.ObjectIdentifier, len(paths))
	for i, key := range paths {
		objects[i] = types.ObjectIdentifier{Key: aws.String(key)}
	}

	return p.do(ctx, func(ctx context.Context) error {
		out, err := p.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(p.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return p.wrapError("DeleteBatch", "", err)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return &provider.OpError{
				Op: "DeleteBatch", Backend: Backend, Container: p.bucket,
				Path: aws.ToString(first.Key),
				Err:  fmt.Errorf("%s: %s", aws.ToString(first.Code), aws.ToString(first.Message)),
			}
		}
		return nil
	})
}

// CopyObject copies within the bucket without streaming through the
// client.
func (p *Provider) CopyObject(ctx context.Context, src, dst string) error {
	return p.do(ctx, func(ctx context.Context) error {
		_, err := p.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(p.bucket),
			CopySource: aws.String(p.bucket + "/" + src),
			Key:        aws.String(dst),
		})
		if err != nil {
			return p.wrapError("CopyObject", src, err)
		}
		return nil
	})
}

// SetMetadata replaces user metadata by copying the object onto itself.
func (p *Provider) SetMetadata(ctx context.Context, path string, metadata map[string]string) error {
	_, err := p.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(p.bucket),
		CopySource:        aws.String(p.bucket + "/" + path),
		Key:               aws.String(path),
		Metadata:          metadata,
		MetadataDirective: types.MetadataDirectiveReplace,
	})
	if err != nil {
		return p.wrapError("SetMetadata", path, err)
	}
	return nil
}

// PresignedURL mints a time-limited GET URL for the object.
func (p *Provider) PresignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	req, err := p.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", p.wrapError("PresignedURL", path, err)
	}
	return req.URL, nil
}

// ListContainers enumerates the buckets visible to the credentials.
func (p *Provider) ListContainers(ctx context.Context) ([]provider.Entry, error) {
	out, err := p.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, p.wrapError("ListContainers", "", err)
	}
	entries := make([]provider.Entry, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		entries = append(entries, provider.NewEntry(aws.ToString(b.Name), provider.EntryBucket, 0, aws.ToTime(b.CreationDate)))
	}
	return entries, nil
}

// SetContainer switches the active bucket for subsequent operations.
func (p *Provider) SetContainer(container string) error {
	if container == "" {
		return &provider.OpError{Op: "SetContainer", Backend: Backend, Err: errors.New("container name is required")}
	}
	p.bucket = container
	return nil
}

// Container returns the active bucket.
func (p *Provider) Container() string { return p.bucket }

// CreateMultipartUpload starts a chunked upload session.
func (p *Provider) CreateMultipartUpload(ctx context.Context, path string, opts provider.WriteOptions) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(path),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}

	out, err := p.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", p.wrapError("CreateMultipartUpload", path, err)
	}
	return aws.ToString(out.UploadId), nil
}

// UploadPart uploads one part and returns its integrity token.
func (p *Provider) UploadPart(ctx context.Context, path, uploadID string, partNumber int32, body io.Reader, size int64) (string, error) {
	out, err := p.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(path),
		UploadId:      aws.String(uploadID),
		PartNumber:    aws.Int32(partNumber),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", p.wrapError("UploadPart", path, err)
	}
	return aws.ToString(out.ETag), nil
}

// CompleteMultipartUpload finalizes the session with the ordered parts.
func (p *Provider) CompleteMultipartUpload(ctx context.Context, path, uploadID string, parts []provider.CompletedPart) error {
	completed := make([]types.CompletedPart, len(parts))
	for i, part := range parts {
		completed[i] = types.CompletedPart{
			PartNumber: aws.Int32(part.PartNumber),
			ETag:       aws.String(part.ETag),
		}
	}

	_, err := p.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(p.bucket),
		Key:             aws.String(path),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return p.wrapError("CompleteMultipartUpload", path, err)
	}
	return nil
}

// AbortMultipartUpload discards the session and its uploaded parts.
func (p *Provider) AbortMultipartUpload(ctx context.Context, path, uploadID string) error {
	_, err := p.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(p.bucket),
		Key:      aws.String(path),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return p.wrapError("AbortMultipartUpload", path, err)
	}
	return nil
}

// wrapError maps SDK failures onto the canonical sentinel taxonomy.
// Typed errors are checked first, then smithy API codes, then a message
// substring fallback for S3-compatible stores with looser error shapes.
func (p *Provider) wrapError(op, path string, err error) error {
	wrapped := &provider.OpError{
		Op:        op,
		Backend:   Backend,
		Container: p.bucket,
		Path:      path,
		Err:       err,
	}

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey):
		wrapped.Err = provider.ErrNotFound
		return wrapped
	case errors.As(err, &noSuchBucket):
		wrapped.Err = provider.ErrContainerNotFound
		return wrapped
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			wrapped.Err = provider.ErrNotFound
		case "NoSuchBucket":
			wrapped.Err = provider.ErrContainerNotFound
		case "AccessDenied", "Forbidden":
			wrapped.Err = provider.ErrPermissionDenied
		case "InvalidAccessKeyId", "SignatureDoesNotMatch":
			wrapped.Err = provider.ErrInvalidCredentials
		case "SlowDown", "Throttling", "RequestLimitExceeded":
			wrapped.Err = provider.ErrThrottled
		case "ServiceUnavailable", "InternalError", "RequestTimeout", "RequestTimeoutException":
			wrapped.Err = provider.ErrConnectionFailed
		}
		return wrapped
	}

	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "NoSuchKey"), strings.Contains(errMsg, "NotFound"), strings.Contains(errMsg, "404"):
		wrapped.Err = provider.ErrNotFound
	case strings.Contains(errMsg, "NoSuchBucket"):
		wrapped.Err = provider.ErrContainerNotFound
	case strings.Contains(errMsg, "AccessDenied"), strings.Contains(errMsg, "Forbidden"), strings.Contains(errMsg, "403"):
		wrapped.Err = provider.ErrPermissionDenied
	case strings.Contains(errMsg, "InvalidAccessKeyId"), strings.Contains(errMsg, "SignatureDoesNotMatch"):
		wrapped.Err = provider.ErrInvalidCredentials
	case strings.Contains(errMsg, "SlowDown"), strings.Contains(errMsg, "Throttling"), strings.Contains(errMsg, "429"):
		wrapped.Err = provider.ErrThrottled
	case strings.Contains(errMsg, "ServiceUnavailable"), strings.Contains(errMsg, "503"),
		strings.Contains(errMsg, "timeout"):
		wrapped.Err = provider.ErrConnectionFailed
	}
	return wrapped
}

// cleanETag strips the quoting S3 wraps around ETag values.
func cleanETag(etag string) string {
	return strings.Trim(etag, "\"")
}
