// Package subscriber はブラウザ側の購読フローを実装する。
//
// 実行環境の確認、Service Workerの登録、通知許可の要求、プッシュサービスへの購読、
// 購読情報のサーバーへの送信を順番に行う。ブラウザの機能は Platform インターフェースで
// 抽象化しており、各操作は同時に1つだけ実行される。再送は行わない。
package subscriber
