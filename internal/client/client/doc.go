// Package client contains the transport adapters of the record pipeline.
//
// # Overview
//
// The package provides:
//  1. The transport contracts the services depend on: Client for records
//     and keys, BlobStore for encrypted attachment payloads and
//     BlobURLIssuer for presigned transfers.
//  2. GRPCClient, a gRPC implementation that exchanges JSON messages with
//     the record service, injects the access token through an interceptor,
//     refreshes an expired token once and maps status codes to sentinel
//     errors.
//  3. Two BlobStore implementations: S3BlobStore talks to a bucket with
//     aws-sdk-go-v2, PresignedBlobStore moves bytes over URLs issued by the
//     platform.
//
// # Error Handling
//
// Transport conditions are exposed as sentinel errors that callers can match
// with errors.Is: ErrUnavailable, ErrUnauthorized, ErrNotFound,
// ErrBlobTransfer, ErrInvalidConfig.
//
// # Concurrency & Contexts
//
// All implementations are safe for concurrent use. Every call honors
// context cancellation; GRPCClient additionally bounds each call by its
// configured timeout.
package client
