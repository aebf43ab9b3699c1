package wire

// registry is the closed set of message variants, indexed by their wire
// name. It is consulted only by the codec package to know
// which zero-value Message to allocate for a decoded "_message" tag.
var registry = map[string]func() Message{
	(Shutdown{}).MessageName():              func() Message { return Shutdown{} },
	(BackendAlive{}).MessageName():          func() Message { return BackendAlive{} },
	(&ContentSync{}).MessageName():          func() Message { return &ContentSync{} },
	(&OutOfSync{}).MessageName():            func() Message { return &OutOfSync{} },
	(&CompletionRequest{}).MessageName():    func() Message { return &CompletionRequest{} },
	(&CompletionResponse{}).MessageName():   func() Message { return &CompletionResponse{} },
	(&CompletionInvocation{}).MessageName(): func() Message { return &CompletionInvocation{} },
	(&ProblemUpdate{}).MessageName():        func() Message { return &ProblemUpdate{} },
	(&StaticSyntaxRequest{}).MessageName():  func() Message { return &StaticSyntaxRequest{} },
	(&StaticSyntaxList{}).MessageName():     func() Message { return &StaticSyntaxList{} },
}

// ByName returns a freshly allocated zero-value Message for the given wire
// name, or false if name names no variant in the closed set.
func ByName(name string) (Message, bool) {
	ctor, ok := registry[name]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// FrontendListener receives messages that a backend decodes from its
// frontend peer: the variants a frontend is permitted to send.
// Embed DefaultFrontendListener to pick up no-op defaults for hooks you
// don't care about.
type FrontendListener interface {
	OnShutdown(Shutdown)
	OnContentSync(*ContentSync)
	OnCompletionRequest(*CompletionRequest)
	OnCompletionInvocation(*CompletionInvocation)
	OnStaticSyntaxRequest(*StaticSyntaxRequest)
}

// DefaultFrontendListener supplies no-op implementations of every
// FrontendListener hook so embedders only override what they need.
type DefaultFrontendListener struct{}

func (DefaultFrontendListener) OnShutdown(Shutdown)                          {}
func (DefaultFrontendListener) OnContentSync(*ContentSync)                   {}
func (DefaultFrontendListener) OnCompletionRequest(*CompletionRequest)       {}
func (DefaultFrontendListener) OnCompletionInvocation(*CompletionInvocation) {}
func (DefaultFrontendListener) OnStaticSyntaxRequest(*StaticSyntaxRequest)   {}

// BackendListener receives messages that a frontend decodes from its
// backend peer: the variants a backend is permitted to send.
// Connection-lifecycle notifications are not wire messages and live on
// frontend.Listener instead, which embeds this interface.
type BackendListener interface {
	OnBackendAlive(BackendAlive)
	OnOutOfSync(*OutOfSync)
	OnProblemUpdate(*ProblemUpdate)
	OnCompletionResponse(*CompletionResponse)
	OnStaticSyntaxList(*StaticSyntaxList)
}

// DefaultBackendListener supplies no-op implementations of every
// BackendListener hook so embedders only override what they need.
type DefaultBackendListener struct{}

func (DefaultBackendListener) OnBackendAlive(BackendAlive)              {}
func (DefaultBackendListener) OnOutOfSync(*OutOfSync)                   {}
func (DefaultBackendListener) OnProblemUpdate(*ProblemUpdate)           {}
func (DefaultBackendListener) OnCompletionResponse(*CompletionResponse) {}
func (DefaultBackendListener) OnStaticSyntaxList(*StaticSyntaxList)     {}

// DispatchToFrontendListener delivers msg to the matching hook on l, or
// returns false if msg is not one of the variants a frontend may send.
func DispatchToFrontendListener(l FrontendListener, msg Message) bool {
	switch m := msg.(type) {
	case Shutdown:
		l.OnShutdown(m)
	case *ContentSync:
		l.OnContentSync(m)
	case *CompletionRequest:
		l.OnCompletionRequest(m)
	case *CompletionInvocation:
		l.OnCompletionInvocation(m)
	case *StaticSyntaxRequest:
		l.OnStaticSyntaxRequest(m)
	default:
		return false
	}
	return true
}

// DispatchToBackendListener delivers msg to the matching hook on l, or
// returns false if msg is not one of the variants a backend may send.
func DispatchToBackendListener(l BackendListener, msg Message) bool {
	switch m := msg.(type) {
	case BackendAlive:
		l.OnBackendAlive(m)
	case *OutOfSync:
		l.OnOutOfSync(m)
	case *ProblemUpdate:
		l.OnProblemUpdate(m)
	case *CompletionResponse:
		l.OnCompletionResponse(m)
	case *StaticSyntaxList:
		l.OnStaticSyntaxList(m)
	default:
		return false
	}
	return true
}
