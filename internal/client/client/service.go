package client

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/gophrecords/internal/client/models"
)

// ServiceName is the fully qualified gRPC service of the record platform.
const ServiceName = "gophrecords.v1.RecordService"

const (
	methodCreateRecord    = "CreateRecord"
	methodUpdateRecord    = "UpdateRecord"
	methodFetchRecord     = "FetchRecord"
	methodSearchRecords   = "SearchRecords"
	methodCountRecords    = "CountRecords"
	methodDeleteRecord    = "DeleteRecord"
	methodFetchCommonKey  = "FetchCommonKey"
	methodFetchUserInfo   = "FetchUserInfo"
	methodRefreshToken    = "RefreshToken"
	methodPresignUpload   = "PresignUpload"
	methodPresignDownload = "PresignDownload"
	methodDeleteBlob      = "DeleteBlob"
	methodPing            = "Ping"
)

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

type RecordRequest struct {
	UserID string                  `json:"user_id"`
	Record *models.EncryptedRecord `json:"record"`
}

type RecordIDRequest struct {
	UserID   string `json:"user_id"`
	RecordID string `json:"record_id"`
}

type SearchRequest struct {
	UserID string             `json:"user_id"`
	Query  models.SearchQuery `json:"query"`
}

type CountRequest struct {
	UserID string   `json:"user_id"`
	Tags   []string `json:"tags,omitempty"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type UserInfoRequest struct {
	PublicKey string `json:"public_key"`
}

type CommonKeyRequest struct {
	UserID      string `json:"user_id"`
	CommonKeyID string `json:"common_key_id"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type BlobRequest struct {
	UserID string `json:"user_id"`
	BlobID string `json:"blob_id,omitempty"`
}

type BlobURL struct {
	BlobID string `json:"blob_id"`
	URL    string `json:"url"`
}

type PingResponse struct {
	Status string `json:"status"`
}

type Empty struct{}

// RecordServiceServer is implemented by platform servers and test doubles.
type RecordServiceServer interface {
	CreateRecord(context.Context, *RecordRequest) (*models.EncryptedRecord, error)
	UpdateRecord(context.Context, *RecordRequest) (*models.EncryptedRecord, error)
	FetchRecord(context.Context, *RecordIDRequest) (*models.EncryptedRecord, error)
	SearchRecords(context.Context, *SearchRequest) (*models.SearchResult, error)
	CountRecords(context.Context, *CountRequest) (*CountResponse, error)
	DeleteRecord(context.Context, *RecordIDRequest) (*Empty, error)
	FetchCommonKey(context.Context, *CommonKeyRequest) (*models.CommonKeyEnvelope, error)
	FetchUserInfo(context.Context, *UserInfoRequest) (*models.UserInfo, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*TokenPair, error)
	PresignUpload(context.Context, *BlobRequest) (*BlobURL, error)
	PresignDownload(context.Context, *BlobRequest) (*BlobURL, error)
	DeleteBlob(context.Context, *BlobRequest) (*Empty, error)
	Ping(context.Context, *Empty) (*PingResponse, error)
}

func unaryHandler[Req any, Resp any](name string, call func(RecordServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			env := new(wrapperspb.BytesValue)
			if err := dec(env); err != nil {
				return nil, err
			}
			in := new(Req)
			if err := unpack(env, in); err != nil {
				return nil, status.Error(codes.InvalidArgument, status.Convert(err).Message())
			}
			s := srv.(RecordServiceServer)
			handler := func(ctx context.Context, req any) (any, error) {
				out, err := call(s, ctx, req.(*Req))
				if err != nil {
					return nil, err
				}
				return pack(out)
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// RecordServiceDesc describes the record service for grpc.Server.
var RecordServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecordServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(methodCreateRecord, RecordServiceServer.CreateRecord),
		unaryHandler(methodUpdateRecord, RecordServiceServer.UpdateRecord),
		unaryHandler(methodFetchRecord, RecordServiceServer.FetchRecord),
		unaryHandler(methodSearchRecords, RecordServiceServer.SearchRecords),
		unaryHandler(methodCountRecords, RecordServiceServer.CountRecords),
		unaryHandler(methodDeleteRecord, RecordServiceServer.DeleteRecord),
		unaryHandler(methodFetchCommonKey, RecordServiceServer.FetchCommonKey),
		unaryHandler(methodFetchUserInfo, RecordServiceServer.FetchUserInfo),
		unaryHandler(methodRefreshToken, RecordServiceServer.RefreshToken),
		unaryHandler(methodPresignUpload, RecordServiceServer.PresignUpload),
		unaryHandler(methodPresignDownload, RecordServiceServer.PresignDownload),
		unaryHandler(methodDeleteBlob, RecordServiceServer.DeleteBlob),
		unaryHandler(methodPing, RecordServiceServer.Ping),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterRecordServiceServer attaches srv to s.
func RegisterRecordServiceServer(s grpc.ServiceRegistrar, srv RecordServiceServer) {
	s.RegisterService(&RecordServiceDesc, srv)
}
