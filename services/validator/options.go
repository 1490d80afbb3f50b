package validator

type Options struct {
	policy   Policy
	verifier SignatureVerifier
}

// Option is a function that sets some option on the Options struct
type Option func(*Options)

func NewDefaultOptions() *Options {
	return &Options{
		verifier: ECDSAVerifier{},
	}
}

func ProcessOptions(opts ...Option) *Options {
	options := NewDefaultOptions()
	for _, o := range opts {
		o(options)
	}

	return options
}

// WithPolicy overrides the validator_policy setting
func WithPolicy(policy Policy) Option {
	return func(o *Options) {
		o.policy = policy
	}
}

// WithSignatureVerifier replaces the ECDSA signature check
func WithSignatureVerifier(verifier SignatureVerifier) Option {
	return func(o *Options) {
		o.verifier = verifier
	}
}
