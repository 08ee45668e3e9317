// Package vision asks a multimodal LLM whether an image contains an animal and
// writes short captions for images.
//
// Classifier sends a single-turn request through services/llm with the image
// inlined as a data URL. ParseDetection turns the model's reply into a
// Detection: a strict JSON decode first, then the first balanced object found
// in surrounding prose. A reply without a recognizable animal flag is
// services.ErrInvalidResponse rather than a negative.
package vision
