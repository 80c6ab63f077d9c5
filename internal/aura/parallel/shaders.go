package parallel

// Both passes draw a single oversized triangle over an S×S target so every
// fragment maps to exactly one cell.
const passVertexShader = `#version 410 core
const vec2 corners[3] = vec2[3](vec2(-1.0, -1.0), vec2(3.0, -1.0), vec2(-1.0, 3.0));
void main() {
	gl_Position = vec4(corners[gl_VertexID], 0.0, 1.0);
}
`

const velocityFragmentShader = `#version 410 core
uniform sampler2D positions;
uniform sampler2D velocities;
uniform float time;
uniform float delta;
uniform float radius;
uniform float proximityScale;
uniform float orbitStrength;
uniform float noiseMultiplier;
uniform float damping;

out vec4 fragColor;

vec3 hash3(vec3 p) {
	p = fract(p * 0.3183099 + vec3(0.1, 0.2, 0.3));
	p += dot(p, p.yzx + 19.19);
	return fract((p.xxy + p.yzz) * p.zyx);
}

void main() {
	ivec2 cell = ivec2(gl_FragCoord.xy);
	vec4 p4 = texelFetch(positions, cell, 0);
	if (p4.w < 0.0) {
		fragColor = vec4(0.0, 0.0, 0.0, 1.0);
		return;
	}
	vec3 pos = p4.xyz;
	vec3 vel = texelFetch(velocities, cell, 0).xyz;

	float angle = orbitStrength * delta;
	float cs = cos(angle);
	float sn = sin(angle);
	vec3 rotated = vec3(pos.x * cs - pos.z * sn, pos.y, pos.x * sn + pos.z * cs);
	vel += (rotated - pos) * 0.25;

	vec3 h = hash3(pos * 0.15 + time * 0.5) - 0.5;
	vel += h * 0.15 * noiseMultiplier * delta;

	vec3 d = pos + 1e-5;
	vec3 dir = d / max(length(d), 1e-4);
	vel += dir * sin(time * 0.5) * 0.02;

	float len = max(length(pos), 1e-4);
	vel += dir * (radius * proximityScale - len) * 0.5 * delta;
	vel *= damping;

	fragColor = vec4(vel, 1.0);
}
`

const positionFragmentShader = `#version 410 core
uniform sampler2D positions;
uniform sampler2D velocities;
uniform float time;
uniform float delta;
uniform float radius;
uniform float warmup;
uniform float tangentialWaveAmp;
uniform float radialJitter;
uniform float shellThickness;
uniform float spikeWeight;
uniform float emotionPhase;
uniform float prevEmotionPhase;
uniform float proximityScale;

out vec4 fragColor;

const float TAU = 6.28318530718;

vec3 safeUnit(vec3 v) {
	return v / max(length(v), 1e-4);
}

void main() {
	ivec2 cell = ivec2(gl_FragCoord.xy);
	vec4 p4 = texelFetch(positions, cell, 0);
	float seed = p4.w;
	if (seed < 0.0) {
		fragColor = vec4(0.0, 0.0, 0.0, seed);
		return;
	}
	vec3 pos = p4.xyz + texelFetch(velocities, cell, 0).xyz * delta;

	vec3 dir = safeUnit(pos);
	vec3 up = abs(dir.y) < 0.999 ? vec3(0.0, 1.0, 0.0) : vec3(1.0, 0.0, 0.0);
	vec3 t1 = safeUnit(cross(up, dir));
	vec3 t2 = safeUnit(cross(dir, t1));

	if (warmup > 0.001) {
		float js = seed + time * 0.73;
		float j1 = fract(sin(js * 12.9898) * 43758.5453) * 2.0 - 1.0;
		float j2 = fract(sin((js + 1.2345) * 78.233) * 43758.5453) * 2.0 - 1.0;
		pos += (t1 * j1 + t2 * j2) * (0.4 * warmup) * radius * 0.5;
	}

	float w = emotionPhase + seed * TAU;
	float wp = prevEmotionPhase + seed * TAU;
	pos += t1 * (sin(w) - sin(wp)) * tangentialWaveAmp;
	pos += t2 * (cos(0.7 * w + seed) - cos(0.7 * wp + seed)) * tangentialWaveAmp * 0.7;

	float radial = sin(1.3 * w) * radialJitter;
	if (spikeWeight > 0.0) {
		float s = sin(2.1 * w);
		radial += s * s * s * radialJitter * spikeWeight;
	}
	radial = clamp(radial, -radialJitter, radialJitter);

	float desired = radius * proximityScale + radial * shellThickness;
	vec3 shellPos = safeUnit(pos) * desired;
	pos = mix(pos, shellPos, mix(0.15, 0.65, 1.0 - warmup));

	fragColor = vec4(pos, seed);
}
`
