// Package capture は複数カメラの並行キャプチャと状態報告を担う
//
// # 責務
// - カメラごとに独立したキャプチャワーカーを起動する
// - フレーム数とメモリ使用量を標準出力へ報告する
// - 停止シグナルによる全ワーカーの協調停止と終了待機
//
// # 仕様
// - Supervisor: ワーカーの起動・集約報告・停止を管理
// - Worker: starting → running → stopping → stopped（失敗時は failed）
// - StopSignal: 一度だけ false → true に遷移する共有フラグ
// - Reporter: 並行ワーカーの出力行が混ざらないように直列化する
//
// 停止は協調的で、ワーカーはループ1周ごとに停止シグナルを確認する。
// デバイスのエラーはそのワーカーだけを終了させ、他のワーカーや Supervisor には伝播しない。
package capture
