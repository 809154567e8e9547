package guide

// demoGuide routes net a along its row and leaves the others unguided.
const demoGuide = `# guides for the demo tile
a
(
0 200 2000 400 M1
)
c
(
400 0 600 400 M1
400 0 1600 1200 M2
1400 1000 1600 1200 M1
)
`

// DemoGuide returns a guide file for the demonstration tile.
func DemoGuide() string { return demoGuide }
