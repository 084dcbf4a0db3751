package llm

// OperationClassificationPrompt instructs the model to map a free-form user
// request onto one of the supported image operations. The response must be a
// single JSON object so DecodeLLMJSON can parse it without heuristics.
const OperationClassificationPrompt = `You classify image editing requests.

Given a user request, choose exactly one operation:
- "restore": fix blur, noise, low resolution, or old/damaged photos
- "remove_region": remove objects, watermarks, text, people, or backgrounds
- "beautify": retouch portraits, smooth skin, enhance faces
- "generate": create a new image from a text description

Respond with JSON only, no prose:
{
  "operation": "<one of the four operations>",
  "confidence": <0.0 to 1.0>,
  "reasoning": "<one sentence>",
  "suggested_params": {}
}`
