package domain

import "errors"

// ドメインエラー定義
var (
	// ErrInvalid は不正な値が設定された場合のエラー
	ErrInvalid = errors.New("ドメイン: 不正な値です")

	// ErrNotFound は要求されたリソースが見つからない場合のエラー
	ErrNotFound = errors.New("ドメイン: リソースが見つかりません")

	// ErrUnknownWorkspace は設定に存在しないワークスペース宛てのイベントを受信した場合のエラー
	ErrUnknownWorkspace = errors.New("ドメイン: 未登録のワークスペースです")

	// ErrMalformedEvent はイベント本文が想定した構造でない場合のエラー
	ErrMalformedEvent = errors.New("ドメイン: 不正なイベントです")

	// ErrLookup はユーザー名・チャンネル名の解決に失敗した場合のエラー（呼び出し元で回復されます）
	ErrLookup = errors.New("ドメイン: 名前解決に失敗しました")

	// ErrDelivery は転送先への投稿に失敗した場合のエラー
	ErrDelivery = errors.New("ドメイン: 転送に失敗しました")

	// ErrConfiguration は起動時の設定が不足・不正な場合のエラー
	ErrConfiguration = errors.New("ドメイン: 設定が不正です")
)
