package rules

import "github.com/miradorstack/mirador-rca/internal/models"

// QemuProcName is the process name used to decide which processes on
// a host are virtualization workers worth expanding store_in edges
// through.
const QemuProcName = "qemu-kvm"

// CrossHost emits the extra entity pairs contributed by one
// cross-host edge, given the two HostTopo values the edge connects.
// fromHost owns edge.FromID, toHost owns edge.ToID.
func CrossHost(edge *models.TopoEdge, fromHost, toHost *models.HostTopo) []EntityPair {
	switch edge.Type {
	case models.RelationRunsOn:
		return crossHostRunsOn(edge, fromHost)
	case models.RelationStoreIn:
		return crossHostStoreIn(fromHost, toHost)
	default:
		return nil
	}
}

// crossHostRunsOn handles runs_on(host->process): the disk and block
// nodes living on the host side also cause/are-caused-by the process.
func crossHostRunsOn(edge *models.TopoEdge, hostSide *models.HostTopo) []EntityPair {
	var out []EntityPair
	for _, d := range hostSide.NodesByType(models.EntityDisk) {
		out = append(out, EntityPair{From: d.ID, To: edge.ToID})
	}
	for _, b := range hostSide.NodesByType(models.EntityBlock) {
		out = append(out, EntityPair{From: edge.ToID, To: b.ID})
	}
	return out
}

// crossHostStoreIn handles store_in(host->host): every QEMU-named
// process on the source host gets wired to the destination host's
// disk and block nodes.
func crossHostStoreIn(fromHost, toHost *models.HostTopo) []EntityPair {
	var out []EntityPair
	for _, p := range fromHost.NodesByType(models.EntityProcess) {
		if p.RawData["proc_name"] != QemuProcName {
			continue
		}
		for _, d := range toHost.NodesByType(models.EntityDisk) {
			out = append(out, EntityPair{From: p.ID, To: d.ID})
		}
		for _, b := range toHost.NodesByType(models.EntityBlock) {
			out = append(out, EntityPair{From: b.ID, To: p.ID})
		}
	}
	return out
}
