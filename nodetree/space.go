package nodetree

import (
	"slices"

	"github.com/google/uuid"

	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
)

// Space owns a set of nodes and the connections between their sockets.
// It is not safe for concurrent use; evaluation runs on the goroutine that
// owns the scene.
type Space struct {
	core.Element
	media.Invalidator

	nodes       core.ElementList[Node]
	connections []*Connection
	links       map[*core.CoreObject]func()

	order      []Node
	orderValid bool
}

var SpaceType = core.DefineType("NodeTreeSpace", core.ElementType)

func NewSpace() *Space {
	s := &Space{links: make(map[*core.CoreObject]func())}
	s.Init(s, SpaceType)
	s.nodes.Init(&s.Element)
	s.nodes.Changed().Subscribe(s.onNodesChanged)
	return s
}

func (s *Space) Nodes() *core.ElementList[Node] { return &s.nodes }

// Connections returns the connections in creation order. Callers must not
// modify the slice.
func (s *Space) Connections() []*Connection { return s.connections }

func (s *Space) raise() {
	s.orderValid = false
	s.RaiseInvalidated(&media.InvalidatedEvent{Sender: s})
}

func (s *Space) onNodesChanged(e *core.ListChangedEvent[Node]) {
	switch e.Action {
	case core.ListAdd:
		for _, n := range e.Items {
			s.attachNode(n)
		}
	case core.ListRemove, core.ListReset:
		for _, n := range e.Items {
			s.detachNode(n)
		}
	}
	s.raise()
}

func (s *Space) attachNode(n Node) {
	nb := n.node()
	if nb.space != nil {
		panic(core.NewError("nodetree.Space.Add", core.KindAlreadyAttached, "%s is already in a node tree", n.Core().ObjectType()))
	}
	nb.space = s
	for _, it := range nb.items.Items() {
		it.AttachTree(s)
	}
	s.links[n.Core()] = n.Invalidated().Subscribe(func(*media.InvalidatedEvent) { s.raise() })
	if h, ok := n.(TreeAttachHook); ok {
		h.OnTreeAttached(s)
	}
}

func (s *Space) detachNode(n Node) {
	nb := n.node()
	if nb.space != s {
		panic(core.NewError("nodetree.Space.Remove", core.KindNotAttached, "%s is not in this node tree", n.Core().ObjectType()))
	}
	items := nb.items.Items()
	for i := len(items) - 1; i >= 0; i-- {
		if sock, ok := items[i].(Socket); ok {
			s.disconnectSocket(sock)
		}
	}
	for i := len(items) - 1; i >= 0; i-- {
		items[i].DetachTree(s)
	}
	if cancel, ok := s.links[n.Core()]; ok {
		cancel()
		delete(s.links, n.Core())
	}
	if h, ok := n.(TreeDetachHook); ok {
		h.OnTreeDetached(s)
	}
	nb.space = nil
}

// Connect links out to in. An input holds at most one connection; an
// existing one is replaced. The output's value type must be assignable to
// the input's.
func (s *Space) Connect(out OutputPort, in InputPort) (*Connection, error) {
	const op = "nodetree.Space.Connect"
	if out.Tree() != s || in.Tree() != s {
		return nil, core.NewError(op, core.KindNotAttached, "socket is not in this node tree")
	}
	if !out.ValueType().AssignableTo(in.ValueType()) {
		return nil, core.NewError(op, core.KindTypeMismatch, "cannot connect %s output %q to %s input %q",
			out.ValueType(), out.Name(), in.ValueType(), in.Name())
	}
	if old := in.Connection(); old != nil {
		if old.Output == out {
			return old, nil
		}
		s.Disconnect(old)
	}
	c := &Connection{Output: out, Input: in}
	out.addConnection(c)
	in.setConnection(c)
	s.connections = append(s.connections, c)
	s.raise()
	return c, nil
}

// Disconnect removes c and reports whether it belonged to the space.
func (s *Space) Disconnect(c *Connection) bool {
	i := slices.Index(s.connections, c)
	if i < 0 {
		return false
	}
	s.connections = slices.Delete(s.connections, i, i+1)
	c.Output.removeConnection(c)
	if c.Input.Connection() == c {
		c.Input.setConnection(nil)
	}
	s.raise()
	return true
}

func (s *Space) disconnectSocket(sock Socket) {
	for _, c := range slices.Clone(sock.Connections()) {
		s.Disconnect(c)
	}
}

// Order returns the nodes sorted so that every node comes after the nodes
// feeding it. Among nodes that are ready at the same time the declared
// order wins. Nodes caught in a cycle are appended in declared order.
func (s *Space) Order() []Node {
	if s.orderValid {
		return s.order
	}
	nodes := s.nodes.Items()
	index := make(map[*core.CoreObject]int, len(nodes))
	for i, n := range nodes {
		index[n.Core()] = i
	}
	indeg := make([]int, len(nodes))
	succ := make([][]int, len(nodes))
	for _, c := range s.connections {
		from, ok1 := index[c.Output.Node().Core()]
		to, ok2 := index[c.Input.Node().Core()]
		if !ok1 || !ok2 {
			continue
		}
		succ[from] = append(succ[from], to)
		indeg[to]++
	}

	order := make([]Node, 0, len(nodes))
	done := make([]bool, len(nodes))
	for len(order) < len(nodes) {
		next := -1
		for i, d := range indeg {
			if d == 0 && !done[i] {
				next = i
				break
			}
		}
		if next < 0 {
			core.Logger().Warn().
				Int("nodes", len(nodes)-len(order)).
				Msg("node tree has a cycle, evaluating the rest in declared order")
			for i, n := range nodes {
				if !done[i] {
					order = append(order, n)
				}
			}
			break
		}
		done[next] = true
		order = append(order, nodes[next])
		for _, j := range succ[next] {
			indeg[j]--
		}
	}
	s.order, s.orderValid = order, true
	return order
}

// Evaluate runs one pass: for each node in dependency order its animations
// are applied, then PreEvaluate, Evaluate and PostEvaluate.
func (s *Space) Evaluate(ctx *EvaluationContext) {
	for _, n := range s.Order() {
		if ctx.Clock != nil {
			n.ApplyAnimations(ctx.Clock)
		}
		n.PreEvaluate(ctx)
		n.Evaluate(ctx)
		n.PostEvaluate(ctx)
	}
}

// --- documents ---

func (s *Space) WriteJSON(m map[string]any) {
	if s.nodes.Len() == 0 {
		return
	}
	m["nodes"] = core.MarshalList(s.nodes.Items())
	if len(s.connections) == 0 {
		return
	}
	conns := make([]any, 0, len(s.connections))
	for _, c := range s.connections {
		conns = append(conns, map[string]any{
			"outputNode": c.Output.Node().Core().ID().String(),
			"output":     c.Output.LocalID(),
			"inputNode":  c.Input.Node().Core().ID().String(),
			"input":      c.Input.LocalID(),
		})
	}
	m["connections"] = conns
}

func (s *Space) ReadJSON(m map[string]any) {
	raw, ok := m["nodes"]
	if !ok {
		return
	}
	s.nodes.Clear()
	s.nodes.Add(core.UnmarshalList[Node](raw)...)

	byID := make(map[uuid.UUID]Node, s.nodes.Len())
	for _, n := range s.nodes.Items() {
		byID[n.Core().ID()] = n
	}
	arr, _ := m["connections"].([]any)
	for i, e := range arr {
		if err := s.readConnection(byID, e); err != nil {
			core.Logger().Warn().Err(err).Int("index", i).Msg("connection skipped")
		}
	}
}

func (s *Space) readConnection(byID map[uuid.UUID]Node, raw any) error {
	const op = "nodetree.Space.ReadJSON"
	cm, ok := raw.(map[string]any)
	if !ok {
		return core.NewError(op, core.KindDeserializationSkipped, "connection is not an object")
	}
	find := func(nodeKey, itemKey string) (Item, error) {
		str, _ := cm[nodeKey].(string)
		id, err := uuid.Parse(str)
		if err != nil {
			return nil, core.NewError(op, core.KindDeserializationSkipped, "bad %s %q", nodeKey, str)
		}
		n, ok := byID[id]
		if !ok {
			return nil, core.NewError(op, core.KindDeserializationSkipped, "unknown %s %s", nodeKey, id)
		}
		local, ok := toInt(cm[itemKey])
		if !ok {
			return nil, core.NewError(op, core.KindDeserializationSkipped, "bad %s", itemKey)
		}
		it, ok := n.node().Item(local)
		if !ok {
			return nil, core.NewError(op, core.KindDeserializationSkipped, "node %s has no item %d", id, local)
		}
		return it, nil
	}
	oi, err := find("outputNode", "output")
	if err != nil {
		return err
	}
	ii, err := find("inputNode", "input")
	if err != nil {
		return err
	}
	out, ok1 := oi.(OutputPort)
	in, ok2 := ii.(InputPort)
	if !ok1 || !ok2 {
		return core.NewError(op, core.KindTypeMismatch, "connection endpoints are not an output and an input")
	}
	_, err = s.Connect(out, in)
	return err
}

// toInt accepts the integer shapes produced by the JSON and CBOR decoders.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

func init() {
	SpaceType.SetFactory(func() core.Object { return NewSpace() })
}

var (
	_ core.JSONWriter     = (*Space)(nil)
	_ core.JSONReader     = (*Space)(nil)
	_ media.Invalidatable = (*Space)(nil)
)
