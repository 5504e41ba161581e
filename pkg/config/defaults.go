package config

import "github.com/vanderheijden86/identigraph/pkg/model"

// DefaultNodes is the built-in identity topology: one control center and
// the identities, credentials and resources it governs.
func DefaultNodes() []model.NodeSpec {
	return []model.NodeSpec{
		{ID: "center", Category: "shield", Fixed: true},
		{ID: "user1", Category: "user", Offset: model.Point{X: -100, Y: -100}},
		{ID: "user2", Category: "user", Offset: model.Point{X: -140, Y: 30}},
		{ID: "service1", Category: "service", Offset: model.Point{X: 100, Y: -90}},
		{ID: "service2", Category: "service", Offset: model.Point{X: 140, Y: 40}},
		{ID: "database1", Category: "database", Offset: model.Point{X: 0, Y: 140}},
		{ID: "key1", Category: "key", Offset: model.Point{X: 60, Y: -40}},
		{ID: "key2", Category: "key", Offset: model.Point{X: -70, Y: 80}},
		{ID: "device1", Category: "device", Offset: model.Point{X: -160, Y: -30}},
		{ID: "device2", Category: "device", Offset: model.Point{X: 160, Y: -30}},
		{ID: "cloud1", Category: "cloud", Offset: model.Point{X: 50, Y: 90}},
		{ID: "cloud2", Category: "cloud", Offset: model.Point{X: -50, Y: -140}},
		{ID: "cert1", Category: "certificate", Offset: model.Point{X: 100, Y: 120}},
		{ID: "domain1", Category: "domain", Offset: model.Point{X: -120, Y: -50}},
		{ID: "lock1", Category: "lock", Offset: model.Point{X: -30, Y: 40}},
	}
}

// DefaultEdges returns the relationships of the built-in topology.
func DefaultEdges() []model.EdgeSpec {
	return []model.EdgeSpec{
		{ID: "c1", Source: "center", Target: "user1", Strength: 0.7, Label: "manages"},
		{ID: "c2", Source: "center", Target: "user2", Strength: 0.7, Label: "manages"},
		{ID: "c3", Source: "center", Target: "service1", Strength: 0.8, Label: "secures"},
		{ID: "c4", Source: "center", Target: "service2", Strength: 0.8, Label: "secures"},
		{ID: "c5", Source: "center", Target: "database1", Strength: 0.6, Label: "monitors"},
		{ID: "c6", Source: "center", Target: "lock1", Strength: 0.9, Label: "enforces"},
		{ID: "c7", Source: "user1", Target: "key1", Strength: 0.5, Label: "owns"},
		{ID: "c8", Source: "user2", Target: "key2", Strength: 0.5, Label: "owns"},
		{ID: "c9", Source: "user1", Target: "device1", Strength: 0.6, Label: "uses"},
		{ID: "c10", Source: "service1", Target: "cloud1", Strength: 0.7, Label: "accesses"},
		{ID: "c11", Source: "service2", Target: "cloud2", Strength: 0.7, Label: "accesses"},
		{ID: "c12", Source: "service1", Target: "device2", Strength: 0.6, Label: "runs on"},
		{ID: "c13", Source: "key1", Target: "service1", Strength: 0.5, Label: "authenticates"},
		{ID: "c14", Source: "key2", Target: "database1", Strength: 0.5, Label: "accesses"},
		{ID: "c15", Source: "database1", Target: "cloud1", Strength: 0.6, Label: "hosted on"},
		{ID: "c16", Source: "user2", Target: "service2", Strength: 0.4, Label: "manages"},
		{ID: "c17", Source: "device1", Target: "cloud2", Strength: 0.3, Label: "connects to"},
		{ID: "c18", Source: "cert1", Target: "service1", Strength: 0.7, Label: "authenticates"},
		{ID: "c19", Source: "domain1", Target: "user1", Strength: 0.6, Label: "contains"},
		{ID: "c20", Source: "domain1", Target: "user2", Strength: 0.6, Label: "contains"},
		{ID: "c21", Source: "lock1", Target: "key1", Strength: 0.8, Label: "governs"},
		{ID: "c22", Source: "lock1", Target: "key2", Strength: 0.8, Label: "governs"},
		{ID: "c23", Source: "cert1", Target: "database1", Strength: 0.5, Label: "secures"},
	}
}

// DefaultPaths returns the access paths cycled by autonomous activation.
func DefaultPaths() []model.PathSpec {
	return []model.PathSpec{
		{ID: "user-access", Edges: []string{"c7", "c13", "c10"}, Description: "User accessing cloud service"},
		{ID: "database-access", Edges: []string{"c8", "c14", "c15"}, Description: "User accessing database in cloud"},
		{ID: "security-policy", Edges: []string{"c6", "c21", "c7"}, Description: "Policy enforcement on user keys"},
		{ID: "domain-resources", Edges: []string{"c19", "c9", "c17"}, Description: "Domain user accessing cloud resources"},
	}
}
