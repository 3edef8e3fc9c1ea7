package main

import (
	"math"

	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/model"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/Carmen-Shannon/oxy-rt/engine/view"
	"github.com/go-gl/mathgl/mgl32"
)

// demo is the scene the binary renders: a ring of spinning cubes over a ground plane under a
// gradient skybox, watched by an orbiting camera.
type demo struct {
	view       view.View
	controller camera.CameraController

	// textured receives the streamed texture, if any.
	textured  material.Material
	materials []material.Material
}

// newDemo builds the demo scene and its view.
//
// Parameters:
//   - r: the renderer the view draws with
//   - cubes: the number of cubes in the ring
//   - aspect: the initial width / height ratio
//
// Returns:
//   - *demo: the demo scene
func newDemo(r renderer.Renderer, cubes int, aspect float32) *demo {
	ground := material.NewMaterial(
		material.WithName("ground"),
		material.WithPipeline(litPipeline),
		material.WithBaseColor([4]float32{0.35, 0.38, 0.35, 1}),
		material.WithRoughness(0.9),
	)
	crate := material.NewMaterial(
		material.WithName("crate"),
		material.WithPipeline(litPipeline),
		material.WithBaseColor([4]float32{1, 1, 1, 1}),
	)
	accent := material.NewMaterial(
		material.WithName("accent"),
		material.WithPipeline(litPipeline),
		material.WithBaseColor([4]float32{0.9, 0.45, 0.2, 1}),
		material.WithMetallic(0.6),
		material.WithRoughness(0.3),
	)
	sky := material.NewMaterial(
		material.WithName("sky"),
		material.WithPipeline(skyboxPipeline),
		material.WithBaseColor([4]float32{0.2, 0.35, 0.7, 1}),
	)
	sky.SetEmissive([3]float32{0.75, 0.8, 0.9})

	sc := scene.NewScene("demo", scene.WithSkybox(scene.NewSkybox(sky, 200)))
	sc.Add(scene.NewNode("ground",
		scene.WithPosition(mgl32.Vec3{0, -1, 0}),
		scene.WithComponents(scene.NewMeshRenderable(model.NewPlane("ground", 40), ground)),
	))

	cube := model.NewCube("cube", 1)
	radius := max(4, float32(cubes)*0.5)
	for i := range cubes {
		angle := 2 * math.Pi * float64(i) / float64(max(cubes, 1))
		mat := crate
		if i%2 == 1 {
			mat = accent
		}
		sc.Add(scene.NewNode("cube",
			scene.WithPosition(mgl32.Vec3{radius * float32(math.Cos(angle)), 0, radius * float32(math.Sin(angle))}),
			scene.WithComponents(
				scene.NewMeshRenderable(cube, mat),
				scene.NewRotator(mgl32.Vec3{0, 1, 0}.Add(mgl32.Vec3{0.3, 0, 0}).Normalize(), 0.5+float32(i%5)*0.2),
			),
		))
	}

	ctrl := camera.NewCameraController(
		camera.WithRadius(radius*2.5),
		camera.WithElevation(0.35),
		camera.WithAutoOrbit(0.15),
	)
	cam := camera.NewCamera(camera.WithController(ctrl), camera.WithAspect(aspect), camera.WithClip(0.1, 500))
	sun := light.NewDirectional(
		light.WithDirection(mgl32.Vec3{-0.4, -1, -0.3}),
		light.WithColor([3]float32{1, 0.96, 0.9}),
		light.WithIntensity(1.2),
		light.WithAmbient([3]float32{0.15, 0.16, 0.2}),
	)

	return &demo{
		view:       view.NewView("main", r, cam, sc, view.WithLight(sun)),
		controller: ctrl,
		textured:   crate,
		materials:  []material.Material{ground, crate, accent, sky},
	}
}
