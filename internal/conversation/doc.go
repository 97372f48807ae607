// Package conversation runs chat turns against an upstream model.
//
// # Flow
//
// A turn loads the newest N remembered messages for the conversation, stores
// the user message, and sends history plus the new message to the Model. The
// reply has its <think> spans removed before anyone sees it:
//
//   - Chat uses think.Strip on the complete reply
//   - ChatStream drives think.Filter over the chunk stream and emits full
//     visible-content snapshots, the last one marked Final
//
// The visible reply is stored once the turn finishes. A cancelled stream stores
// nothing for the reply.
//
// # History Window
//
// HistorySize clamps the requested window: nil or below the minimum falls back
// to the default, and anything above the maximum is capped.
//
// # Models
//
// Model is the only seam to the language model. EchoModel is a development
// stand-in that thinks briefly and echoes the user.
package conversation
