// Package s3 stores uploads, generated media and finished renders in an S3
// bucket using aws-sdk-go. It also hands out presigned URLs for browser
// uploads and downloads, caching download URLs until they approach expiry.
package s3
