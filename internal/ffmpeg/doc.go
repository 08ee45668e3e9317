// Package ffmpeg runs the two ffmpeg invocations CamReview needs: sampling
// preview frames from a video and producing a mobile-friendly H.264 transcode.
//
// The binary is obtained from a Resolver (normally deps.FFmpegResolver) on
// every call, so a missing tool surfaces as services.ErrToolUnavailable and a
// failed or timed-out run as services.ErrProcessingFailed.
package ffmpeg
