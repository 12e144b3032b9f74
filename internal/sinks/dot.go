package sinks

import (
	"fmt"
	"sort"

	"github.com/awalterschulze/gographviz"

	"tracereplay/internal/dispatch"
	"tracereplay/internal/graph"
)

// DotSink renders the global task graph to Graphviz DOT. It declares a
// dependency on the stats sink so node styling (once the stats sink starts
// annotating colors) is always computed before the DOT sink runs, mirroring
// the dispatcher's general precedence-by-declaration model.
type DotSink struct {
	dispatch.NopSink
	Report *Report
}

func (s *DotSink) Name() string        { return "dot" }
func (s *DotSink) DependsOn() []string { return []string{"stats"} }
func (s *DotSink) SetReport(r *Report) { s.Report = r }

func (s *DotSink) OnEnd(cfg dispatch.Config) error {
	if s.Report == nil {
		return nil
	}
	g := gographviz.NewGraph()
	if err := g.SetName("tasks"); err != nil {
		return err
	}
	if err := g.SetDir(true); err != nil {
		return err
	}

	ids := make([]graph.NodeID, 0, len(s.Report.Graph.Nodes))
	for id := range s.Report.Graph.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return nodeLess(ids[i], ids[j]) })

	for _, id := range ids {
		n := s.Report.Graph.Nodes[id]
		attrs := map[string]string{
			"label": fmt.Sprintf("\"%s (pid=%d uid=%d)\"", n.Label, id.Pid, id.UID),
		}
		if err := g.AddNode("tasks", nodeName(id), attrs); err != nil {
			return err
		}
	}
	for _, id := range ids {
		n := s.Report.Graph.Nodes[id]
		succs := append([]graph.NodeID(nil), n.Successors...)
		sort.Slice(succs, func(i, j int) bool { return nodeLess(succs[i], succs[j]) })
		for _, succ := range succs {
			if err := g.AddEdge(nodeName(id), nodeName(succ), true, nil); err != nil {
				return err
			}
		}
	}
	for _, from := range ids {
		tos := append([]graph.NodeID(nil), s.Report.Graph.SendToRecv[from]...)
		sort.Slice(tos, func(i, j int) bool { return nodeLess(tos[i], tos[j]) })
		for _, to := range tos {
			if err := g.AddEdge(nodeName(from), nodeName(to), true, map[string]string{"style": "dashed", "color": "blue"}); err != nil {
				return err
			}
		}
	}

	return writeFileAtomic(cfg.OutputPrefix+".dot", []byte(g.String()))
}

func nodeName(id graph.NodeID) string { return fmt.Sprintf("\"p%du%d\"", id.Pid, id.UID) }

func nodeLess(a, b graph.NodeID) bool {
	if a.Pid != b.Pid {
		return a.Pid < b.Pid
	}
	return a.UID < b.UID
}
