// Package extract holds the dropin extractors that take URLs away from the
// generic engine, and the dispatcher that decides which one runs.
//
// The only dropin today is TikTok, which archives through the tikwm API
// because TikTok blocks the engine's own extractor.
package extract
