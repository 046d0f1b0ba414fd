package encoder

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/daulet/tokenizers"
	onnxruntime "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/farmsense/poultryqa/internal/config"
	"github.com/farmsense/poultryqa/internal/domain"
)

// Neural encodes queries with a local ONNX sentence-encoder. The session and
// tokenizer are shared process-wide and initialized lazily on first use,
// guarded by a mutex so concurrent first calls initialize only once. A failed
// initialization is retried on the next call rather than cached forever.
type Neural struct {
	cfg    config.NeuralEncoderConfig
	logger *zap.Logger

	mu          sync.Mutex
	session     *onnxruntime.DynamicAdvancedSession
	tokenizer   *tokenizers.Tokenizer
	inputNames  []string
	outputNames []string
}

var _ domain.Encoder = (*Neural)(nil)

// NewNeural creates the local neural backend. No model files are touched
// until the first Encode call.
func NewNeural(cfg config.NeuralEncoderConfig, logger *zap.Logger) *Neural {
	return &Neural{cfg: cfg, logger: logger}
}

// Encode implements domain.Encoder: tokenize, run the model, mean-pool over
// the attention mask, L2-normalize.
func (e *Neural) Encode(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.ensureSession(); err != nil {
		return nil, err
	}

	ids, mask := e.tokenize(text)
	if len(ids) == 0 {
		return nil, fmt.Errorf("tokenizer produced no tokens")
	}

	pooled, err := e.run(ids, mask)
	if err != nil {
		return nil, err
	}
	normalizeL2(pooled)
	return pooled, nil
}

// ensureSession lazily initializes the shared ONNX session and tokenizer.
func (e *Neural) ensureSession() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		return nil
	}
	if e.cfg.ModelPath == "" || e.cfg.TokenizerPath == "" {
		return fmt.Errorf("neural encoder is not configured: %w", domain.ErrEncoderUnavailable)
	}

	if err := onnxruntime.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnx runtime: %w", err)
	}

	tk, err := tokenizers.FromFile(e.cfg.TokenizerPath)
	if err != nil {
		return fmt.Errorf("load tokenizer: %w", err)
	}

	inputs, outputs, err := onnxruntime.GetInputOutputInfo(e.cfg.ModelPath)
	if err != nil {
		tk.Close()
		return fmt.Errorf("read model input/output info: %w", err)
	}
	inputNames := make([]string, len(inputs))
	for i, in := range inputs {
		inputNames[i] = in.Name
	}
	outputNames := make([]string, len(outputs))
	for i, out := range outputs {
		outputNames[i] = out.Name
	}

	options, err := onnxruntime.NewSessionOptions()
	if err != nil {
		tk.Close()
		return fmt.Errorf("create session options: %w", err)
	}
	defer func() { _ = options.Destroy() }()

	session, err := onnxruntime.NewDynamicAdvancedSession(
		e.cfg.ModelPath, inputNames, outputNames, options,
	)
	if err != nil {
		tk.Close()
		return fmt.Errorf("create onnx session: %w", err)
	}

	e.session = session
	e.tokenizer = tk
	e.inputNames = inputNames
	e.outputNames = outputNames
	e.logger.Info("Neural encoder initialized",
		zap.String("model", e.cfg.ModelPath),
		zap.Strings("inputs", inputNames),
	)
	return nil
}

// tokenize returns padded-free int64 token ids and attention mask, truncated
// to the configured maximum.
func (e *Neural) tokenize(text string) ([]int64, []int64) {
	encoding := e.tokenizer.EncodeWithOptions(text, true)

	ids := encoding.IDs
	if len(ids) > e.cfg.MaxTokens {
		ids = ids[:e.cfg.MaxTokens]
	}

	inputIDs := make([]int64, len(ids))
	mask := make([]int64, len(ids))
	for i, id := range ids {
		inputIDs[i] = int64(id)
		mask[i] = 1
	}
	return inputIDs, mask
}

// run executes a batch-of-one forward pass and mean-pools the token
// embeddings over the attention mask.
func (e *Neural) run(ids, mask []int64) ([]float32, error) {
	seq := int64(len(ids))
	shape := onnxruntime.NewShape(1, seq)

	inputValues := make([]onnxruntime.Value, 0, len(e.inputNames))
	defer func() {
		for _, v := range inputValues {
			if v != nil {
				_ = v.Destroy()
			}
		}
	}()

	for _, name := range e.inputNames {
		var data []int64
		switch name {
		case "input_ids":
			data = ids
		case "attention_mask":
			data = mask
		case "token_type_ids":
			data = make([]int64, len(ids))
		default:
			return nil, fmt.Errorf("unsupported model input %q", name)
		}
		tensor, err := onnxruntime.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("create tensor %s: %w", name, err)
		}
		inputValues = append(inputValues, tensor)
	}

	outputValues := make([]onnxruntime.Value, len(e.outputNames))
	defer func() {
		for _, v := range outputValues {
			if v != nil {
				_ = v.Destroy()
			}
		}
	}()

	if err := e.session.Run(inputValues, outputValues); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out, ok := outputValues[0].(*onnxruntime.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", outputValues[0])
	}

	tokenEmb := out.GetData()
	outShape := out.GetShape()
	if len(outShape) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", outShape)
	}
	hidden := int(outShape[2])

	pooled := make([]float32, hidden)
	var count float32
	for t := 0; t < len(mask); t++ {
		if mask[t] == 0 {
			continue
		}
		base := t * hidden
		for h := 0; h < hidden; h++ {
			pooled[h] += tokenEmb[base+h]
		}
		count++
	}
	if count == 0 {
		return nil, fmt.Errorf("attention mask is empty")
	}
	for h := range pooled {
		pooled[h] /= count
	}
	return pooled, nil
}

// Close releases the shared session and tokenizer.
func (e *Neural) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		_ = e.session.Destroy()
		e.session = nil
	}
	if e.tokenizer != nil {
		e.tokenizer.Close()
		e.tokenizer = nil
	}
}

func normalizeL2(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
