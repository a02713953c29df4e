// Package camera はキャプチャデバイス1台分の操作を担う
//
// # 責務
// - 固定解像度でのV4L2デバイスのオープンとストリーミング開始
// - フレーム到着までの効率的な待機（poll）
// - フレームの取得とバッファの即時再キュー
// - ストリーミング停止とデバイスの解放
// - V4L2デバイスの検出
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - 1台のカメラを排他的に所有してフレームを読み出したい
// - ハードウェアなしでキャプチャループを動かしたい（MockOpener）
//
// # 仕様
// - Handle は1つのワーカーが排他的に所有し、共有しない
// - ハードウェアバッファは1つだけ確保する。再キューに失敗するとキャプチャが止まる
// - 全ての失敗は DeviceError（デバイスパス・操作名・原因）として返す
// - Close は2回目以降の呼び出しでは何もしない
//
// # 前提要件
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
