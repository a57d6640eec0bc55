package models

import "github.com/dmitrijs2005/gophrecords/internal/cryptox"

// UserInfo is what the platform returns about the signed-in account.
type UserInfo struct {
	UserID           string             `json:"uid"`
	CommonKeyID      string             `json:"common_key_id"`
	WrappedCommonKey cryptox.WrappedKey `json:"common_key"`
	WrappedTEK       cryptox.WrappedKey `json:"tag_encryption_key"`
}

// CommonKeyEnvelope is a common key encrypted for this device's key pair.
type CommonKeyEnvelope struct {
	CommonKeyID      string             `json:"common_key_id"`
	WrappedCommonKey cryptox.WrappedKey `json:"common_key"`
}
