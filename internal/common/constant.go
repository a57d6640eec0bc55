package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// MaxDataSize is the largest payload (attachment or raw record body) the
// platform accepts, in bytes.
const MaxDataSize = 20 * 1024 * 1024
