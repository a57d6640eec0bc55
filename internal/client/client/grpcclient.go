package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/gophrecords/internal/client/models"
	"github.com/dmitrijs2005/gophrecords/internal/common"
)

// GRPCClient talks to the record platform over gRPC with JSON bodies inside
// protobuf envelopes. It
// injects the access token into every call and refreshes it once when the
// platform reports it expired.
type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

// SetTokens installs the credentials used for subsequent calls.
func (s *GRPCClient) SetTokens(accessToken, refreshToken string) {
	s.mu.Lock()
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.mu.Unlock()
}

// AccessToken returns the token currently in use.
func (s *GRPCClient) AccessToken() string {
	access, _ := s.tokens()
	return access
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if method == fullMethod(methodRefreshToken) {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	access, refresh := s.tokens()
	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != ErrTokenExpired.Error() {
		return err
	}
	if refresh == "" {
		return err
	}

	// the refresh goes straight to the invoker so it never re-enters here
	in, perr := pack(&RefreshTokenRequest{RefreshToken: refresh})
	if perr != nil {
		return perr
	}
	out := new(wrapperspb.BytesValue)
	if rerr := invoker(ctx, fullMethod(methodRefreshToken), in, out, cc, opts...); rerr != nil {
		return rerr
	}
	var pair TokenPair
	if uerr := unpack(out, &pair); uerr != nil {
		return uerr
	}
	s.SetTokens(pair.AccessToken, pair.RefreshToken)

	return invoker(withAccessToken(ctx, pair.AccessToken), method, req, reply, cc, opts...)
}

// NewGRPCClient connects to endpointURL. timeout bounds every call; zero
// disables it. Extra dial options are appended to the defaults.
func NewGRPCClient(endpointURL string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	c.conn = conn
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) invoke(ctx context.Context, method string, req, reply any) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	in, err := pack(req)
	if err != nil {
		return err
	}
	out := new(wrapperspb.BytesValue)
	if err := s.conn.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return s.mapError(err)
	}
	return s.mapError(unpack(out, reply))
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	var resp PingResponse
	if err := s.invoke(ctx, methodPing, &Empty{}, &resp); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) CreateRecord(ctx context.Context, userID string, rec *models.EncryptedRecord) (*models.EncryptedRecord, error) {
	var out models.EncryptedRecord
	if err := s.invoke(ctx, methodCreateRecord, &RecordRequest{UserID: userID, Record: rec}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GRPCClient) UpdateRecord(ctx context.Context, userID string, rec *models.EncryptedRecord) (*models.EncryptedRecord, error) {
	var out models.EncryptedRecord
	if err := s.invoke(ctx, methodUpdateRecord, &RecordRequest{UserID: userID, Record: rec}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GRPCClient) FetchRecord(ctx context.Context, userID, recordID string) (*models.EncryptedRecord, error) {
	var out models.EncryptedRecord
	if err := s.invoke(ctx, methodFetchRecord, &RecordIDRequest{UserID: userID, RecordID: recordID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GRPCClient) SearchRecords(ctx context.Context, userID string, q models.SearchQuery) (*models.SearchResult, error) {
	var out models.SearchResult
	if err := s.invoke(ctx, methodSearchRecords, &SearchRequest{UserID: userID, Query: q}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GRPCClient) CountRecords(ctx context.Context, userID string, tags []string) (int, error) {
	var out CountResponse
	if err := s.invoke(ctx, methodCountRecords, &CountRequest{UserID: userID, Tags: tags}, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (s *GRPCClient) DeleteRecord(ctx context.Context, userID, recordID string) error {
	return s.invoke(ctx, methodDeleteRecord, &RecordIDRequest{UserID: userID, RecordID: recordID}, &Empty{})
}

func (s *GRPCClient) FetchCommonKey(ctx context.Context, userID, commonKeyID string) (*models.CommonKeyEnvelope, error) {
	var out models.CommonKeyEnvelope
	if err := s.invoke(ctx, methodFetchCommonKey, &CommonKeyRequest{UserID: userID, CommonKeyID: commonKeyID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GRPCClient) FetchUserInfo(ctx context.Context, publicKey string) (*models.UserInfo, error) {
	var out models.UserInfo
	if err := s.invoke(ctx, methodFetchUserInfo, &UserInfoRequest{PublicKey: publicKey}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GRPCClient) PresignUpload(ctx context.Context, userID string) (string, string, error) {
	var out BlobURL
	if err := s.invoke(ctx, methodPresignUpload, &BlobRequest{UserID: userID}, &out); err != nil {
		return "", "", err
	}
	return out.BlobID, out.URL, nil
}

func (s *GRPCClient) PresignDownload(ctx context.Context, userID, blobID string) (string, error) {
	var out BlobURL
	if err := s.invoke(ctx, methodPresignDownload, &BlobRequest{UserID: userID, BlobID: blobID}, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (s *GRPCClient) DeleteBlob(ctx context.Context, userID, blobID string) error {
	return s.invoke(ctx, methodDeleteBlob, &BlobRequest{UserID: userID, BlobID: blobID}, &Empty{})
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, st.Message())
	case codes.Canceled:
		return fmt.Errorf("%w: %s", context.Canceled, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
